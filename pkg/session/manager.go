package session

import (
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
	"github.com/google/uuid"
)

// ManagerConfig конфигурация менеджера сессий
type ManagerConfig struct {
	Logger logging.Logger
}

// DefaultManagerConfig возвращает конфигурацию по умолчанию
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{Logger: logging.Default()}
}

// Peer принимает сериализованные сигнальные сообщения для удаленной стороны
type Peer interface {
	Deliver(stanza []byte) error
}

// Manager владеет сессиями и маршрутизирует их клиентам по типу содержимого.
//
// Manager не синхронизирован: все вызовы, включая HandleStanza, должны
// выполняться из одной управляющей горутины.
type Manager struct {
	clients  map[string]Client
	sessions map[ID]*localSession
	peer     Peer
	log      logging.Logger

	// Статистика
	stats ManagerStats
}

// ManagerStats статистика сессий
type ManagerStats struct {
	TotalCreated   uint64
	TotalDestroyed uint64
	Active         uint64
}

// NewManager создает менеджер сессий
func NewManager(config ManagerConfig) *Manager {
	if config.Logger == nil {
		config.Logger = logging.Default()
	}
	return &Manager{
		clients:  make(map[string]Client),
		sessions: make(map[ID]*localSession),
		log:      config.Logger.WithComponent("session"),
	}
}

// SetPeer задает получателя исходящих сообщений
func (m *Manager) SetPeer(p Peer) {
	m.peer = p
}

// AddClient регистрирует клиента для типа содержимого
func (m *Manager) AddClient(contentType string, c Client) error {
	if _, exists := m.clients[contentType]; exists {
		return fmt.Errorf("%w: %s", ErrClientExists, contentType)
	}
	m.clients[contentType] = c
	m.log.Debug("client registered", logging.String("content_type", contentType))
	return nil
}

// RemoveClient снимает регистрацию. Повторный вызов безопасен.
func (m *Manager) RemoveClient(contentType string) {
	if _, exists := m.clients[contentType]; exists {
		delete(m.clients, contentType)
		m.log.Debug("client removed", logging.String("content_type", contentType))
	}
}

// Client возвращает клиента для типа содержимого
func (m *Manager) Client(contentType string) (Client, bool) {
	c, ok := m.clients[contentType]
	return c, ok
}

// CreateSession создает исходящую сессию для локального адреса
func (m *Manager) CreateSession(localName, contentType string) (Session, error) {
	client, ok := m.clients[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoClient, contentType)
	}

	s := newLocalSession(m, ID(uuid.NewString()), contentType, localName, true)
	m.add(s)
	client.OnSessionCreate(s, false)
	return s, nil
}

// Session возвращает сессию по идентификатору
func (m *Manager) Session(id ID) (Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Sessions возвращает количество живых сессий
func (m *Manager) Sessions() int {
	return len(m.sessions)
}

// Stats возвращает статистику менеджера
func (m *Manager) Stats() ManagerStats {
	return m.stats
}

// DestroySession переводит сессию в Deinit, уведомляет клиента и удаляет ее.
// Повторный вызов для уже удаленной сессии ничего не делает.
func (m *Manager) DestroySession(s Session) {
	ls, ok := m.sessions[s.ID()]
	if !ok {
		return
	}

	if err := ls.transition(eventDeinit); err != nil {
		m.log.LogError(err, "session deinit failed", logging.String("session_id", string(ls.id)))
	}
	if client, ok := m.clients[ls.contentType]; ok {
		client.OnSessionDestroy(ls)
	}

	delete(m.sessions, ls.id)
	m.stats.TotalDestroyed++
	m.stats.Active--
	m.log.Debug("session destroyed", logging.String("session_id", string(ls.id)))
}

func (m *Manager) add(s *localSession) {
	m.sessions[s.id] = s
	m.stats.TotalCreated++
	m.stats.Active++
	m.log.Debug("session created",
		logging.String("session_id", string(s.id)),
		logging.String("content_type", s.contentType),
		logging.Bool("initiator", s.initiator))
}

func (m *Manager) send(st *stanza) error {
	if m.peer == nil {
		return ErrNoPeer
	}
	data, err := st.marshal()
	if err != nil {
		return err
	}
	return m.peer.Deliver(data)
}

// buildStanza сериализует описание через клиента типа содержимого сессии
func (m *Manager) buildStanza(s *localSession, kind string, desc Description) (*stanza, error) {
	st := &stanza{
		kind:      kind,
		id:        s.id,
		initiator: s.initiatorName(),
		from:      s.localName,
		to:        s.remoteName,
	}
	if desc == nil {
		return st, nil
	}

	client, ok := m.clients[s.contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoClient, s.contentType)
	}
	elem, err := client.WriteDescription(desc)
	if err != nil {
		return nil, fmt.Errorf("write description: %w", err)
	}
	st.description = elem
	return st, nil
}

// HandleStanza обрабатывает входящее сигнальное сообщение
func (m *Manager) HandleStanza(data []byte) error {
	st, err := parseStanza(data)
	if err != nil {
		return err
	}

	m.log.Debug("stanza received",
		logging.String("type", st.kind),
		logging.String("session_id", string(st.id)))

	if st.kind == stanzaInitiate {
		return m.handleInitiate(st)
	}

	s, ok := m.sessions[st.id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, st.id)
	}

	switch st.kind {
	case stanzaAccept:
		if st.description != nil {
			desc, err := m.parseDescription(s.contentType, st.description)
			if err != nil {
				return err
			}
			s.remoteDesc = desc
		}
		return s.transition(eventReceiveAccept)
	case stanzaReject:
		if err := s.transition(eventReceiveReject); err != nil {
			return err
		}
		m.DestroySession(s)
	case stanzaTerminate:
		if err := s.transition(eventReceiveTerminate); err != nil {
			return err
		}
		m.DestroySession(s)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrBadStanza, st.kind)
	}
	return nil
}

func (m *Manager) handleInitiate(st *stanza) error {
	if _, exists := m.sessions[st.id]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, st.id)
	}
	if st.description == nil {
		return fmt.Errorf("%w: initiate without description", ErrBadStanza)
	}

	contentType := st.description.Name.Space
	client, ok := m.clients[contentType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoClient, contentType)
	}
	desc, err := client.ParseDescription(st.description)
	if err != nil {
		return fmt.Errorf("parse description: %w", err)
	}

	s := newLocalSession(m, st.id, contentType, st.to, false)
	s.remoteName = st.from
	s.remoteDesc = desc
	m.add(s)

	client.OnSessionCreate(s, true)
	return s.transition(eventReceiveInitiate)
}

func (m *Manager) parseDescription(contentType string, elem *xmpp.Element) (Description, error) {
	client, ok := m.clients[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoClient, contentType)
	}
	desc, err := client.ParseDescription(elem)
	if err != nil {
		return nil, fmt.Errorf("parse description: %w", err)
	}
	return desc, nil
}

func (s *localSession) initiatorName() string {
	if s.initiator {
		return s.localName
	}
	return s.remoteName
}
