package phone

import (
	"errors"
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/session"
)

// Ошибки пакета
var (
	ErrCallNotFound       = errors.New("call not found")
	ErrSessionNotFound    = errors.New("session is not mapped to a call")
	ErrClientClosed       = errors.New("media session client is closed")
	ErrAlreadyRegistered  = errors.New("media session client is already registered")
	ErrNegotiationFailed  = errors.New("no common voice codec")
	ErrSessionNotAttached = errors.New("session is not attached to the call")
	ErrInvalidAddress     = errors.New("invalid peer address")
)

// ErrorCategory категории ошибок для классификации
type ErrorCategory string

const (
	// CategoryInvariant нарушение согласованности реестра и транспорта
	CategoryInvariant ErrorCategory = "INVARIANT"
	// CategoryNegotiation ошибка согласования кодеков
	CategoryNegotiation ErrorCategory = "NEGOTIATION"
	// CategoryTransport ошибка транспорта сессий
	CategoryTransport ErrorCategory = "TRANSPORT"
	// CategoryConfig ошибка конфигурации
	CategoryConfig ErrorCategory = "CONFIG"
)

// String возвращает строковое представление категории ошибки
func (c ErrorCategory) String() string {
	return string(c)
}

// PhoneError структурированная ошибка клиента медиа сессий
type PhoneError struct {
	Code     string        // Уникальный код ошибки
	Message  string        // Человекочитаемое сообщение
	Category ErrorCategory // Категория ошибки

	// Контекст ошибки
	CallID    uint32     // ID звонка, 0 если неизвестен
	SessionID session.ID // ID сессии

	Cause error // Исходная ошибка
}

// Error реализует интерфейс error
func (e *PhoneError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.SessionID != "" {
		msg += fmt.Sprintf(" (session: %s)", e.SessionID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *PhoneError) Unwrap() error {
	return e.Cause
}

// LogFields возвращает контекст ошибки в виде полей логгера
func (e *PhoneError) LogFields() []logging.Field {
	fields := []logging.Field{
		logging.String("error_code", e.Code),
		logging.String("error_category", e.Category.String()),
	}
	if e.CallID != 0 {
		fields = append(fields, logging.Uint32("call_id", e.CallID))
	}
	if e.SessionID != "" {
		fields = append(fields, logging.String("session_id", string(e.SessionID)))
	}
	return fields
}

// NewPhoneError создает новую структурированную ошибку
func NewPhoneError(code, message string, category ErrorCategory) *PhoneError {
	return &PhoneError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Предопределенные ошибки для частых случаев

func errUnknownSession(id session.ID) *PhoneError {
	e := NewPhoneError("UNKNOWN_SESSION", "уничтожается сессия, которой нет в реестре", CategoryInvariant)
	e.SessionID = id
	e.Cause = ErrSessionNotFound
	return e
}

func errNegotiation(id session.ID, callID uint32) *PhoneError {
	e := NewPhoneError("EMPTY_ACCEPT", "нет общего голосового кодека", CategoryNegotiation)
	e.SessionID = id
	e.CallID = callID
	e.Cause = ErrNegotiationFailed
	return e
}

func errConfig(cause error) *PhoneError {
	e := NewPhoneError("INVALID_CONFIG", "невалидная конфигурация", CategoryConfig)
	e.Cause = cause
	return e
}

func errTransport(op string, id session.ID, callID uint32, cause error) *PhoneError {
	e := NewPhoneError("TRANSPORT_"+op, "операция транспорта не выполнена: "+op, CategoryTransport)
	e.SessionID = id
	e.CallID = callID
	e.Cause = cause
	return e
}

// IsInvariantViolation проверяет, сообщает ли ошибка о нарушении согласованности
func IsInvariantViolation(err error) bool {
	var pe *PhoneError
	return errors.As(err, &pe) && pe.Category == CategoryInvariant
}
