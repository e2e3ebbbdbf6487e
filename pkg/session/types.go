// Package session описывает сигнальную сессию, которой оперирует клиент
// медиа сессий, и содержит эталонную in-process реализацию транспорта:
// Manager с конечным автоматом жизненного цикла и loopback Link для
// соединения двух менеджеров.
//
// Сессиями владеет транспорт (Manager). Клиенты регистрируются по
// пространству имен типа содержимого и получают уведомления о создании и
// уничтожении сессий, а также переводят описания в XML и обратно.
package session

import (
	"errors"

	"github.com/arzzra/jingle_phone/pkg/xmpp"
)

// ID идентификатор сессии
type ID string

// State состояние сигнальной сессии
type State int

const (
	// StateInit сессия создана, сигнализация не начата
	StateInit State = iota
	// StateSentInitiate отправлен initiate
	StateSentInitiate
	// StateReceivedInitiate получен initiate
	StateReceivedInitiate
	// StateSentAccept отправлен accept
	StateSentAccept
	// StateReceivedAccept получен accept
	StateReceivedAccept
	// StateSentReject отправлен reject
	StateSentReject
	// StateReceivedReject получен reject
	StateReceivedReject
	// StateSentTerminate отправлен terminate
	StateSentTerminate
	// StateReceivedTerminate получен terminate
	StateReceivedTerminate
	// StateDeinit сессия уничтожена
	StateDeinit
)

// String возвращает строковое представление состояния
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSentInitiate:
		return "SentInitiate"
	case StateReceivedInitiate:
		return "ReceivedInitiate"
	case StateSentAccept:
		return "SentAccept"
	case StateReceivedAccept:
		return "ReceivedAccept"
	case StateSentReject:
		return "SentReject"
	case StateReceivedReject:
		return "ReceivedReject"
	case StateSentTerminate:
		return "SentTerminate"
	case StateReceivedTerminate:
		return "ReceivedTerminate"
	case StateDeinit:
		return "Deinit"
	default:
		return "Unknown"
	}
}

// IsFinal сообщает, завершена ли сигнализация в этом состоянии
func (s State) IsFinal() bool {
	switch s {
	case StateSentReject, StateReceivedReject, StateSentTerminate, StateReceivedTerminate, StateDeinit:
		return true
	}
	return false
}

// Description обобщенное описание содержимого сессии.
// Конкретный тип определяет клиент, зарегистрированный для ContentType.
type Description interface {
	ContentType() string
}

// StateHandler обработчик изменения состояния сессии
type StateHandler func(s Session, state State)

// Session сигнальный обмен с одной удаленной стороной
type Session interface {
	ID() ID
	// Type пространство имен содержимого (phone или video)
	Type() string
	LocalName() string
	RemoteName() string
	// Initiator true, если сессию начала локальная сторона
	Initiator() bool
	State() State

	LocalDescription() Description
	RemoteDescription() Description

	Initiate(to string, desc Description) error
	Accept(desc Description) error
	Reject() error
	Terminate() error

	// OnStateChange подписывает обработчик на изменения состояния
	OnStateChange(h StateHandler)
}

// Client потребитель сессий определенного типа содержимого
type Client interface {
	// OnSessionCreate вызывается для каждой новой сессии.
	// receivedInitiate true для входящих сессий.
	OnSessionCreate(s Session, receivedInitiate bool)
	// OnSessionDestroy вызывается перед удалением сессии менеджером
	OnSessionDestroy(s Session)
	// ParseDescription переводит XML описание в объект
	ParseDescription(elem *xmpp.Element) (Description, error)
	// WriteDescription переводит объект описания в XML
	WriteDescription(desc Description) (*xmpp.Element, error)
}

// Ошибки пакета
var (
	ErrClientExists      = errors.New("client already registered for content type")
	ErrNoClient          = errors.New("no client registered for content type")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrNoPeer            = errors.New("session manager has no peer")
	ErrBadStanza         = errors.New("malformed session stanza")
)
