package session

import (
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/looplab/fsm"
)

// localSession реализация Session, которой владеет Manager
type localSession struct {
	id          ID
	contentType string
	localName   string
	remoteName  string
	initiator   bool

	localDesc  Description
	remoteDesc Description

	machine  *fsm.FSM
	handlers []StateHandler

	manager *Manager
	log     logging.Logger
}

func newLocalSession(m *Manager, id ID, contentType, localName string, initiator bool) *localSession {
	s := &localSession{
		id:          id,
		contentType: contentType,
		localName:   localName,
		initiator:   initiator,
		manager:     m,
	}
	s.log = m.log.WithFields(logging.String("session_id", string(id)))
	s.machine = newStateMachine(func(from, to State) {
		s.log.Debug("session state changed",
			logging.String("from", from.String()),
			logging.String("to", to.String()))
	})
	return s
}

func (s *localSession) ID() ID                         { return s.id }
func (s *localSession) Type() string                   { return s.contentType }
func (s *localSession) LocalName() string              { return s.localName }
func (s *localSession) RemoteName() string             { return s.remoteName }
func (s *localSession) Initiator() bool                { return s.initiator }
func (s *localSession) LocalDescription() Description  { return s.localDesc }
func (s *localSession) RemoteDescription() Description { return s.remoteDesc }

// State возвращает текущее состояние сессии
func (s *localSession) State() State {
	return stringToState(s.machine.Current())
}

// OnStateChange подписывает обработчик на изменения состояния
func (s *localSession) OnStateChange(h StateHandler) {
	if h != nil {
		s.handlers = append(s.handlers, h)
	}
}

// transition выполняет событие FSM и уведомляет подписчиков.
// Подписчики вызываются после выхода из FSM, поэтому могут сами
// инициировать следующий переход (например, Reject из ReceivedInitiate).
func (s *localSession) transition(event string) error {
	if err := fire(s.machine, event); err != nil {
		return err
	}

	state := s.State()
	handlers := append([]StateHandler(nil), s.handlers...)
	for _, h := range handlers {
		h(s, state)
	}
	return nil
}

// Initiate отправляет initiate с локальным описанием
func (s *localSession) Initiate(to string, desc Description) error {
	if !s.machine.Can(eventSendInitiate) {
		return fire(s.machine, eventSendInitiate)
	}
	s.remoteName = to
	s.localDesc = desc

	st, err := s.manager.buildStanza(s, stanzaInitiate, desc)
	if err != nil {
		return err
	}
	if err := s.transition(eventSendInitiate); err != nil {
		return err
	}
	return s.manager.send(st)
}

// Accept отвечает на входящий initiate
func (s *localSession) Accept(desc Description) error {
	if !s.machine.Can(eventSendAccept) {
		return fire(s.machine, eventSendAccept)
	}
	s.localDesc = desc

	st, err := s.manager.buildStanza(s, stanzaAccept, desc)
	if err != nil {
		return err
	}
	if err := s.transition(eventSendAccept); err != nil {
		return err
	}
	return s.manager.send(st)
}

// Reject отклоняет входящий initiate. После отправки сессия уничтожается.
func (s *localSession) Reject() error {
	if !s.machine.Can(eventSendReject) {
		return fire(s.machine, eventSendReject)
	}

	st, err := s.manager.buildStanza(s, stanzaReject, nil)
	if err != nil {
		return err
	}
	if err := s.transition(eventSendReject); err != nil {
		return err
	}
	sendErr := s.manager.send(st)
	s.manager.DestroySession(s)
	return sendErr
}

// Terminate завершает активную сессию. После отправки сессия уничтожается.
func (s *localSession) Terminate() error {
	if !s.machine.Can(eventSendTerminate) {
		return fire(s.machine, eventSendTerminate)
	}

	st, err := s.manager.buildStanza(s, stanzaTerminate, nil)
	if err != nil {
		return err
	}
	if err := s.transition(eventSendTerminate); err != nil {
		return err
	}
	sendErr := s.manager.send(st)
	s.manager.DestroySession(s)
	return sendErr
}
