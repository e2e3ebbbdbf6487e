package phone

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/session"
	"github.com/arzzra/jingle_phone/pkg/translator"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
	"mellium.im/xmpp/jid"
)

// ChannelManager канальный уровень: локальные кодеки и медиа каналы сессий
type ChannelManager interface {
	translator.Capabilities

	// SetChannelsEnabled включает или выключает каналы перечисленных сессий звонка
	SetChannelsEnabled(callID uint32, sessions []session.Session, enable bool)
	// UpdateSession сообщает о согласованных описаниях сессии
	UpdateSession(s session.Session)
	// ReleaseSession освобождает каналы уничтоженной сессии
	ReleaseSession(id session.ID)
}

// SessionManager транспорт сигнальных сессий
type SessionManager interface {
	AddClient(contentType string, c session.Client) error
	RemoveClient(contentType string)
	CreateSession(localName, contentType string) (session.Session, error)
	DestroySession(s session.Session)
}

// CallHandler обработчик создания или уничтожения звонка
type CallHandler func(call *Call)

// FocusHandler обработчик смены фокуса. Любой из аргументов может быть nil.
type FocusHandler func(newFocus, oldFocus *Call)

// MediaSessionClient реестр звонков и арбитр фокуса.
//
// Клиент обслуживает сессии типов phone и video: создает звонки для входящих
// сессий, отклоняет сессии без общего голосового кодека и следит за тем,
// чтобы медиа каналы были включены не более чем у одного звонка.
//
// Клиент не синхронизирован, все вызовы должны выполняться из одной
// управляющей горутины вместе с вызовами транспорта.
type MediaSessionClient struct {
	config     *Config
	localJid   jid.JID
	transport  SessionManager
	channels   ChannelManager
	translator *translator.Translator
	metrics    *Metrics
	logger     logging.Logger

	calls      map[uint32]*Call
	sessions   map[session.ID]sessionEntry
	focus      *Call
	nextCallID uint32

	callCreateHandlers  []CallHandler
	callDestroyHandlers []CallHandler
	focusHandlers       []FocusHandler

	registered bool
	closed     bool
}

// sessionEntry запись реестра сессий. Сессия может быть закреплена за
// звонком, но еще не присоединена к нему (см. CreateSession).
type sessionEntry struct {
	callID  uint32
	session session.Session
}

// NewMediaSessionClient создает клиент. Регистрация в транспорте выполняется
// отдельным вызовом Register.
func NewMediaSessionClient(config *Config, transport SessionManager, channels ChannelManager) (*MediaSessionClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config не может быть nil")
	}
	if transport == nil || channels == nil {
		return nil, fmt.Errorf("transport и channels обязательны")
	}
	if err := config.Validate(); err != nil {
		return nil, errConfig(err)
	}

	// адрес уже проверен Validate
	local := jid.MustParse(config.LocalJid)

	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var metrics *Metrics
	if config.Metrics != nil {
		metrics = NewMetrics(config.Metrics)
	}

	return &MediaSessionClient{
		config:     config,
		localJid:   local,
		transport:  transport,
		channels:   channels,
		translator: &translator.Translator{LegacyVoiceCodecs: config.LegacyVoiceCodecs},
		metrics:    metrics,
		logger:     logger.WithComponent("media_session_client"),
		calls:      make(map[uint32]*Call),
		sessions:   make(map[session.ID]sessionEntry),
		nextCallID: 1,
	}, nil
}

// Register регистрирует клиента в транспорте для типов phone и video
func (c *MediaSessionClient) Register() error {
	if c.closed {
		return ErrClientClosed
	}
	if c.registered {
		return ErrAlreadyRegistered
	}

	if err := c.transport.AddClient(xmpp.NSPhone, c); err != nil {
		return fmt.Errorf("register %s: %w", xmpp.NSPhone, err)
	}
	if err := c.transport.AddClient(xmpp.NSVideo, c); err != nil {
		c.transport.RemoveClient(xmpp.NSPhone)
		return fmt.Errorf("register %s: %w", xmpp.NSVideo, err)
	}

	c.registered = true
	c.logger.Info("media session client registered", logging.String("jid", c.localJid.String()))
	return nil
}

// Close уничтожает все звонки и снимает регистрацию в транспорте.
// Повторный вызов ничего не делает.
func (c *MediaSessionClient) Close() {
	if c.closed {
		return
	}

	for _, call := range c.Calls() {
		if err := c.DestroyCall(call); err != nil {
			c.logger.LogError(err, "destroy call on close failed", logging.Uint32("call_id", call.id))
		}
	}

	if c.registered {
		c.transport.RemoveClient(xmpp.NSPhone)
		c.transport.RemoveClient(xmpp.NSVideo)
		c.registered = false
	}
	c.closed = true
	c.logger.Info("media session client closed")
}

// LocalJid возвращает нормализованный адрес локальной стороны
func (c *MediaSessionClient) LocalJid() jid.JID {
	return c.localJid
}

// OnCallCreate подписывает обработчик на создание звонков
func (c *MediaSessionClient) OnCallCreate(h CallHandler) {
	if h != nil {
		c.callCreateHandlers = append(c.callCreateHandlers, h)
	}
}

// OnCallDestroy подписывает обработчик на уничтожение звонков
func (c *MediaSessionClient) OnCallDestroy(h CallHandler) {
	if h != nil {
		c.callDestroyHandlers = append(c.callDestroyHandlers, h)
	}
}

// OnFocus подписывает обработчик на смену фокуса
func (c *MediaSessionClient) OnFocus(h FocusHandler) {
	if h != nil {
		c.focusHandlers = append(c.focusHandlers, h)
	}
}

// CreateCall создает звонок со свежим идентификатором
func (c *MediaSessionClient) CreateCall(video, multiplexed bool) *Call {
	call := newCall(c, c.nextCallID, video, multiplexed)
	c.nextCallID++
	c.calls[call.id] = call
	c.metrics.callCreated()

	c.logger.Info("call created",
		logging.Uint32("call_id", call.id),
		logging.Bool("video", video),
		logging.Bool("multiplexed", multiplexed))

	for _, h := range c.callCreateHandlers {
		h(call)
	}
	return call
}

// DestroyCall уничтожает звонок.
//
// Фокус снимается до уведомления подписчиков. Оставшиеся сессии звонка,
// включая закрепленные за ним, но не присоединенные, уничтожаются в
// транспорте, активные предварительно завершаются.
func (c *MediaSessionClient) DestroyCall(call *Call) error {
	if !c.owns(call) {
		return ErrCallNotFound
	}

	if c.focus == call {
		if err := c.SetFocus(nil); err != nil {
			return err
		}
	}

	for _, h := range c.callDestroyHandlers {
		h(call)
	}

	for _, s := range append(call.Sessions(), c.unattachedSessions(call)...) {
		if err := s.Terminate(); err != nil {
			c.transport.DestroySession(s)
		}
	}

	// транспорт мог не сообщить об уничтожении
	for _, s := range call.Sessions() {
		call.RemoveSession(s)
		c.unmapSession(s.ID())
		c.channels.ReleaseSession(s.ID())
	}
	for id, e := range c.sessions {
		if e.callID == call.id {
			c.unmapSession(id)
			c.channels.ReleaseSession(id)
		}
	}

	delete(c.calls, call.id)
	c.metrics.callDestroyed()
	c.logger.Info("call destroyed", logging.Uint32("call_id", call.id))
	return nil
}

// SetFocus передает фокус звонку call, nil снимает фокус.
// Каналы прежнего фокуса выключаются до включения каналов нового.
func (c *MediaSessionClient) SetFocus(call *Call) error {
	if call == c.focus {
		return nil
	}
	if call != nil && !c.owns(call) {
		return ErrCallNotFound
	}

	old := c.focus
	if old != nil {
		old.EnableChannels(false)
	}
	c.focus = call
	if call != nil {
		call.EnableChannels(true)
	}
	c.metrics.focusChanged()

	c.logger.Debug("focus changed",
		logging.Uint32("call_id", idOf(call)),
		logging.Uint32("previous_call_id", idOf(old)))

	for _, h := range c.focusHandlers {
		h(call, old)
	}
	return nil
}

// JoinCalls переносит сессии source в target и уничтожает source.
// Если фокус был у source, он переходит к target.
func (c *MediaSessionClient) JoinCalls(target, source *Call) error {
	if !c.owns(target) || !c.owns(source) {
		return ErrCallNotFound
	}
	if target == source {
		return nil
	}

	sourceHadFocus := c.focus == source
	if sourceHadFocus {
		if err := c.SetFocus(nil); err != nil {
			return err
		}
	}

	// еще не присоединенные сессии source переходят к target вместе с остальными
	for _, s := range c.unattachedSessions(source) {
		c.remapSession(s.ID(), target.id)
	}
	target.Join(source, c.focus == target)

	if err := c.DestroyCall(source); err != nil {
		return err
	}
	c.metrics.callJoined()

	if sourceHadFocus {
		return c.SetFocus(target)
	}
	return nil
}

// Focus возвращает звонок с фокусом или nil
func (c *MediaSessionClient) Focus() *Call {
	return c.focus
}

// Call возвращает звонок по идентификатору
func (c *MediaSessionClient) Call(id uint32) (*Call, bool) {
	call, ok := c.calls[id]
	return call, ok
}

// Calls возвращает все звонки в порядке создания
func (c *MediaSessionClient) Calls() []*Call {
	out := make([]*Call, 0, len(c.calls))
	for _, call := range c.calls {
		out = append(out, call)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// CallForSession возвращает звонок, которому принадлежит сессия
func (c *MediaSessionClient) CallForSession(id session.ID) (*Call, bool) {
	e, ok := c.sessions[id]
	if !ok {
		return nil, false
	}
	return c.Call(e.callID)
}

// CreateOffer строит offer по локальным возможностям канального уровня
func (c *MediaSessionClient) CreateOffer(video bool) *description.MediaSessionDescription {
	return translator.BuildOffer(c.channels, video)
}

// CreateAccept строит accept как пересечение offer с локальными возможностями
func (c *MediaSessionClient) CreateAccept(offer *description.MediaSessionDescription) *description.MediaSessionDescription {
	return translator.BuildAccept(offer, c.channels)
}

// CreateSession создает в транспорте исходящую сессию для звонка.
// Сессия закрепляется за звонком, но присоединять ее должен вызывающий.
// DestroyCall уничтожает и не присоединенные сессии звонка.
func (c *MediaSessionClient) CreateSession(call *Call) (session.Session, error) {
	if c.closed {
		return nil, ErrClientClosed
	}
	if !c.owns(call) {
		return nil, ErrCallNotFound
	}

	contentType := xmpp.NSPhone
	if call.video {
		contentType = xmpp.NSVideo
	}
	s, err := c.transport.CreateSession(c.localJid.String(), contentType)
	if err != nil {
		return nil, errTransport("CREATE", "", call.id, err)
	}
	c.mapSession(s, call.id)
	return s, nil
}

// OnSessionCreate реализует session.Client
func (c *MediaSessionClient) OnSessionCreate(s session.Session, receivedInitiate bool) {
	s.OnStateChange(c.onSessionState)

	if !receivedInitiate {
		return
	}

	call := c.CreateCall(s.Type() == xmpp.NSVideo, false)
	c.mapSession(s, call.id)
	call.AddSession(s)

	c.logger.Info("incoming session",
		logging.String("session_id", string(s.ID())),
		logging.String("from", s.RemoteName()),
		logging.Uint32("call_id", call.id))
}

// OnSessionDestroy реализует session.Client
func (c *MediaSessionClient) OnSessionDestroy(s session.Session) {
	e, ok := c.sessions[s.ID()]
	if !ok {
		c.invariantViolation(errUnknownSession(s.ID()))
		return
	}

	c.unmapSession(s.ID())
	if call, ok := c.calls[e.callID]; ok {
		call.RemoveSession(s)
	}
	c.channels.ReleaseSession(s.ID())
}

// ParseDescription реализует session.Client
func (c *MediaSessionClient) ParseDescription(elem *xmpp.Element) (session.Description, error) {
	desc, err := c.translator.Decode(elem)
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// WriteDescription реализует session.Client
func (c *MediaSessionClient) WriteDescription(desc session.Description) (*xmpp.Element, error) {
	md, err := description.FromSession(desc)
	if err != nil {
		return nil, err
	}
	return c.translator.Encode(md)
}

func (c *MediaSessionClient) onSessionState(s session.Session, state session.State) {
	switch state {
	case session.StateReceivedInitiate:
		c.negotiateIncoming(s)
	case session.StateSentAccept, session.StateReceivedAccept:
		c.channels.UpdateSession(s)
	}
}

// negotiateIncoming отклоняет входящую сессию без общего голосового кодека
func (c *MediaSessionClient) negotiateIncoming(s session.Session) {
	reason := ""
	offer, err := description.FromSession(s.RemoteDescription())
	if err != nil {
		reason = RejectReasonBadOffer
	} else if len(c.CreateAccept(offer).Voice().Codecs()) == 0 {
		reason = RejectReasonNoCommonCodec
	}
	if reason == "" {
		return
	}

	c.logger.Info("rejecting incoming session",
		logging.String("session_id", string(s.ID())),
		logging.String("reason", reason))
	c.metrics.sessionRejected(reason)

	if err := s.Reject(); err != nil && !errors.Is(err, session.ErrNoPeer) {
		c.logger.LogError(err, "reject failed", logging.String("session_id", string(s.ID())))
	}
}

func (c *MediaSessionClient) invariantViolation(err *PhoneError) {
	c.logger.LogError(err, "registry is out of sync with session transport")
	if c.config.PanicOnInvariantViolation {
		panic(err)
	}
}

func (c *MediaSessionClient) owns(call *Call) bool {
	if call == nil {
		return false
	}
	registered, ok := c.calls[call.id]
	return ok && registered == call
}

func (c *MediaSessionClient) mapSession(s session.Session, callID uint32) {
	if _, exists := c.sessions[s.ID()]; !exists {
		c.metrics.sessionMapped()
	}
	c.sessions[s.ID()] = sessionEntry{callID: callID, session: s}
}

func (c *MediaSessionClient) remapSession(id session.ID, callID uint32) {
	if e, exists := c.sessions[id]; exists {
		e.callID = callID
		c.sessions[id] = e
	}
}

// unattachedSessions возвращает сессии, закрепленные за звонком, но не
// присоединенные к нему
func (c *MediaSessionClient) unattachedSessions(call *Call) []session.Session {
	var out []session.Session
	for id, e := range c.sessions {
		if e.callID == call.id && !call.HasSession(id) {
			out = append(out, e.session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (c *MediaSessionClient) unmapSession(id session.ID) {
	if _, exists := c.sessions[id]; exists {
		delete(c.sessions, id)
		c.metrics.sessionUnmapped()
	}
}

func idOf(call *Call) uint32 {
	if call == nil {
		return 0
	}
	return call.id
}
