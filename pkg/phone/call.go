package phone

import (
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/session"
	"mellium.im/xmpp/jid"
)

// Call группа сигнальных сессий, которые образуют один разговор.
//
// Звонком владеет MediaSessionClient. Сессии принадлежат транспорту, звонок
// хранит только ссылки на них в порядке добавления.
type Call struct {
	id          uint32
	video       bool
	multiplexed bool

	sessions map[session.ID]session.Session
	order    []session.ID

	channelsEnabled bool

	client   *MediaSessionClient
	channels ChannelManager
	logger   logging.Logger
}

func newCall(client *MediaSessionClient, id uint32, video, multiplexed bool) *Call {
	return &Call{
		id:          id,
		video:       video,
		multiplexed: multiplexed,
		sessions:    make(map[session.ID]session.Session),
		client:      client,
		channels:    client.channels,
		logger:      client.logger.WithFields(logging.Uint32("call_id", id)),
	}
}

// ID возвращает идентификатор звонка
func (c *Call) ID() uint32 { return c.id }

// Video сообщает, является ли звонок видео звонком
func (c *Call) Video() bool { return c.video }

// Multiplexed сообщает, разделяют ли сессии звонка один медиа поток
func (c *Call) Multiplexed() bool { return c.multiplexed }

// ChannelsEnabled сообщает, включены ли медиа каналы звонка
func (c *Call) ChannelsEnabled() bool { return c.channelsEnabled }

// Sessions возвращает сессии звонка в порядке добавления
func (c *Call) Sessions() []session.Session {
	out := make([]session.Session, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.sessions[id])
	}
	return out
}

// HasSession проверяет, присоединена ли сессия к звонку
func (c *Call) HasSession(id session.ID) bool {
	_, ok := c.sessions[id]
	return ok
}

// AddSession присоединяет сессию к звонку.
// Если каналы звонка включены, включаются и каналы новой сессии.
func (c *Call) AddSession(s session.Session) {
	if c.HasSession(s.ID()) {
		return
	}
	c.sessions[s.ID()] = s
	c.order = append(c.order, s.ID())

	if c.channelsEnabled {
		c.channels.SetChannelsEnabled(c.id, []session.Session{s}, true)
	}
	c.logger.Debug("session attached", logging.String("session_id", string(s.ID())))
}

// RemoveSession отсоединяет сессию от звонка.
// Каналы отсоединенной сессии выключаются.
func (c *Call) RemoveSession(s session.Session) {
	if !c.HasSession(s.ID()) {
		return
	}
	delete(c.sessions, s.ID())
	for i, id := range c.order {
		if id == s.ID() {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	if c.channelsEnabled {
		c.channels.SetChannelsEnabled(c.id, []session.Session{s}, false)
	}
	c.logger.Debug("session detached", logging.String("session_id", string(s.ID())))
}

// EnableChannels включает или выключает медиа каналы всех сессий звонка.
// Повторный вызов с тем же значением ничего не делает.
//
// Вызывать должен только MediaSessionClient (SetFocus, JoinCalls): прямой
// вызов в обход арбитра может включить каналы двух звонков одновременно.
func (c *Call) EnableChannels(enable bool) {
	if c.channelsEnabled == enable {
		return
	}
	c.channelsEnabled = enable
	c.channels.SetChannelsEnabled(c.id, c.Sessions(), enable)
	c.logger.Debug("channels toggled", logging.Bool("enabled", enable))
}

// Join переносит все сессии other в этот звонок.
//
// При inheritFocus звонок становится (или остается) включенным. Снимать
// фокус с other до вызова должен вызывающий, иначе каналы обоих звонков
// окажутся включены одновременно. Вызывать должен только
// MediaSessionClient.JoinCalls, который соблюдает этот порядок.
func (c *Call) Join(other *Call, inheritFocus bool) {
	if other == nil || other == c {
		return
	}

	for _, s := range other.Sessions() {
		other.RemoveSession(s)
		c.AddSession(s)
		c.client.remapSession(s.ID(), c.id)
	}

	if inheritFocus {
		c.EnableChannels(true)
	}
	c.logger.Info("calls joined",
		logging.Uint32("source_call_id", other.id),
		logging.Int("sessions", len(c.order)))
}

// InitiateSession создает исходящую сессию к to, присоединяет ее к звонку
// и отправляет offer по локальным возможностям.
func (c *Call) InitiateSession(to jid.JID) (session.Session, error) {
	if to.Domainpart() == "" {
		return nil, fmt.Errorf("%w: пустой адрес", ErrInvalidAddress)
	}

	s, err := c.client.CreateSession(c)
	if err != nil {
		return nil, err
	}
	c.AddSession(s)

	offer := c.client.CreateOffer(c.video)
	if err := s.Initiate(to.String(), offer); err != nil {
		c.client.transport.DestroySession(s)
		return nil, errTransport("INITIATE", s.ID(), c.id, err)
	}
	return s, nil
}

// AcceptSession отвечает на входящую сессию описанием accept
func (c *Call) AcceptSession(s session.Session) error {
	if !c.HasSession(s.ID()) {
		return fmt.Errorf("%w: %s", ErrSessionNotAttached, s.ID())
	}

	offer, err := description.FromSession(s.RemoteDescription())
	if err != nil {
		return errTransport("ACCEPT", s.ID(), c.id, err)
	}
	accept := c.client.CreateAccept(offer)
	if len(accept.Voice().Codecs()) == 0 {
		return errNegotiation(s.ID(), c.id)
	}

	if err := s.Accept(accept); err != nil {
		return errTransport("ACCEPT", s.ID(), c.id, err)
	}
	return nil
}

// RejectSession отклоняет входящую сессию
func (c *Call) RejectSession(s session.Session) error {
	if !c.HasSession(s.ID()) {
		return fmt.Errorf("%w: %s", ErrSessionNotAttached, s.ID())
	}
	if err := s.Reject(); err != nil {
		return errTransport("REJECT", s.ID(), c.id, err)
	}
	return nil
}

// TerminateSession завершает сессию звонка
func (c *Call) TerminateSession(s session.Session) error {
	if !c.HasSession(s.ID()) {
		return fmt.Errorf("%w: %s", ErrSessionNotAttached, s.ID())
	}
	if err := s.Terminate(); err != nil {
		return errTransport("TERMINATE", s.ID(), c.id, err)
	}
	return nil
}

func (c *Call) String() string {
	return fmt.Sprintf("call %d (video=%t, sessions=%d, enabled=%t)",
		c.id, c.video, len(c.order), c.channelsEnabled)
}
