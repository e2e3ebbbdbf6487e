// Package channel реализует канальный уровень клиента медиа сессий:
// перечень локально поддерживаемых кодеков и медиа каналы сессий, которые
// включаются и выключаются при смене фокуса звонка.
//
// Manager потокобезопасен, в отличие от остальных пакетов клиента: канальный
// уровень может опрашиваться из горутин медиа потоков.
package channel

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/session"
	"github.com/pion/rtp"
)

// Ошибки канального уровня
var (
	ErrChannelNotFound = errors.New("media channel not found")
	ErrChannelDisabled = errors.New("media channel is disabled")
	ErrNotNegotiated   = errors.New("media channel has no negotiated codec")
)

// MediaChannel снимок состояния медиа канала одной сессии
type MediaChannel struct {
	SessionID session.ID
	CallID    uint32
	Enabled   bool

	// Negotiated true, когда известен согласованный кодек
	Negotiated bool
	AudioCodec codec.Codec
	VideoCodec codec.VideoCodec
	HasVideo   bool

	// LocalSSRC источник исходящих пакетов, RemoteSSRC из описания пира
	LocalSSRC  uint32
	RemoteSSRC uint32
}

type mediaChannel struct {
	MediaChannel
	header    rtp.Header
	timestamp uint32
}

// Manager канальный менеджер.
// Реализует translator.Capabilities.
type Manager struct {
	config   *Config
	channels map[session.ID]*mediaChannel
	mutex    sync.RWMutex
	logger   logging.Logger
}

// NewManager создает канальный менеджер
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("невалидная конфигурация: %w", err)
	}

	configCopy := config.Copy()
	logger := configCopy.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Manager{
		config:   configCopy,
		channels: make(map[session.ID]*mediaChannel),
		logger:   logger.WithComponent("channel_manager"),
	}, nil
}

// SupportedAudioCodecs возвращает копию списка голосовых кодеков
func (m *Manager) SupportedAudioCodecs() []codec.Codec {
	return append([]codec.Codec(nil), m.config.AudioCodecs...)
}

// SupportedVideoCodecs возвращает копию списка видео кодеков
func (m *Manager) SupportedVideoCodecs() []codec.VideoCodec {
	return append([]codec.VideoCodec(nil), m.config.VideoCodecs...)
}

// FindCodec сообщает, поддерживается ли кодек той же идентичности
func (m *Manager) FindCodec(c codec.Codec) bool {
	_, ok := codec.FindCodec(m.config.AudioCodecs, c)
	return ok
}

// FindVideoCodec сообщает, поддерживается ли видео кодек той же идентичности
func (m *Manager) FindVideoCodec(c codec.VideoCodec) bool {
	_, ok := codec.FindVideoCodec(m.config.VideoCodecs, c)
	return ok
}

// SetChannelsEnabled включает или выключает медиа каналы сессий звонка.
// Каналы создаются при первом обращении.
func (m *Manager) SetChannelsEnabled(callID uint32, sessions []session.Session, enable bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, s := range sessions {
		ch := m.channelLocked(s)
		ch.CallID = callID
		ch.Enabled = enable
		m.negotiateLocked(ch, s)

		m.logger.Debug("media channel toggled",
			logging.String("session_id", string(s.ID())),
			logging.Uint32("call_id", callID),
			logging.Bool("enabled", enable),
		)
	}
}

// UpdateSession обновляет согласованные параметры канала по описаниям сессии
func (m *Manager) UpdateSession(s session.Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.negotiateLocked(m.channelLocked(s), s)
}

// ReleaseSession удаляет канал сессии. Повторный вызов ничего не делает.
func (m *Manager) ReleaseSession(id session.ID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.channels[id]; !ok {
		return
	}
	delete(m.channels, id)
	m.logger.Debug("media channel released", logging.String("session_id", string(id)))
}

// Channel возвращает снимок канала сессии
func (m *Manager) Channel(id session.ID) (MediaChannel, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ch, ok := m.channels[id]
	if !ok {
		return MediaChannel{}, false
	}
	return ch.MediaChannel, true
}

// Channels возвращает количество каналов
func (m *Manager) Channels() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.channels)
}

// EnabledChannels возвращает количество включенных каналов
func (m *Manager) EnabledChannels() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	n := 0
	for _, ch := range m.channels {
		if ch.Enabled {
			n++
		}
	}
	return n
}

// Packetize формирует голосовой RTP пакет для канала сессии.
// samples - количество отсчетов в payload, на него сдвигается timestamp
// следующего пакета.
func (m *Manager) Packetize(id session.ID, payload []byte, samples uint32) (*rtp.Packet, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	if !ch.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrChannelDisabled, id)
	}
	if !ch.Negotiated {
		return nil, fmt.Errorf("%w: %s", ErrNotNegotiated, id)
	}

	header := ch.header
	header.Timestamp = ch.timestamp

	ch.header.SequenceNumber++
	ch.timestamp += samples

	return &rtp.Packet{
		Header:  header,
		Payload: append([]byte(nil), payload...),
	}, nil
}

func (m *Manager) channelLocked(s session.Session) *mediaChannel {
	if ch, ok := m.channels[s.ID()]; ok {
		return ch
	}

	ssrc, err := generateSSRC()
	if err != nil {
		m.logger.LogError(err, "ssrc generation failed", logging.String("session_id", string(s.ID())))
	}

	ch := &mediaChannel{
		MediaChannel: MediaChannel{
			SessionID: s.ID(),
			LocalSSRC: ssrc,
		},
		header: rtp.Header{
			Version:        2,
			SSRC:           ssrc,
			SequenceNumber: generateRandomUint16(),
		},
		timestamp: generateRandomUint32(),
	}
	m.channels[s.ID()] = ch
	return ch
}

// negotiateLocked выбирает кодеки из описания accept.
// У инициатора accept пришел от пира, у принимающей стороны он локальный.
func (m *Manager) negotiateLocked(ch *mediaChannel, s session.Session) {
	accepted := s.LocalDescription()
	if s.Initiator() {
		accepted = s.RemoteDescription()
	}
	desc, err := description.FromSession(accepted)
	if err != nil {
		return
	}

	for _, c := range desc.Voice().Codecs() {
		if m.FindCodec(c) {
			ch.AudioCodec = c
			ch.Negotiated = true
			ch.header.PayloadType = uint8(c.ID)
			break
		}
	}

	ch.HasVideo = false
	for _, c := range desc.Video().Codecs() {
		if m.FindVideoCodec(c) {
			ch.VideoCodec = c
			ch.HasVideo = true
			break
		}
	}

	if remote, err := description.FromSession(s.RemoteDescription()); err == nil && remote.Voice().SSRCSet() {
		ch.RemoteSSRC = remote.Voice().SSRC()
	}
}

// generateSSRC генерирует случайный SSRC согласно RFC 3550 Appendix A.6
func generateSSRC() (uint32, error) {
	var ssrc uint32
	err := binary.Read(rand.Reader, binary.BigEndian, &ssrc)
	if err != nil {
		return 0, err
	}
	return ssrc, nil
}

func generateRandomUint16() uint16 {
	var val uint16
	_ = binary.Read(rand.Reader, binary.BigEndian, &val)
	return val
}

func generateRandomUint32() uint32 {
	var val uint32
	_ = binary.Read(rand.Reader, binary.BigEndian, &val)
	return val
}
