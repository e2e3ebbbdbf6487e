// Package logging предоставляет структурированный логгер для пакетов
// jingle_phone. Интерфейс повторяет форму StructuredLogger (поля, компоненты),
// а реализация построена поверх logrus.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger интерфейс для структурированного логирования
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// LogError логирует ошибку вместе с полями
	LogError(err error, msg string, fields ...Field)

	// Контекстные логгеры
	WithComponent(component string) Logger
	WithFields(fields ...Field) Logger

	// IsDebug сообщает, включен ли уровень debug
	IsDebug() bool
}

// Field представляет поле лога
type Field struct {
	Key   string
	Value interface{}
}

// Helpers для создания полей
func String(key, value string) Field        { return Field{key, value} }
func Int(key string, value int) Field       { return Field{key, value} }
func Uint32(key string, value uint32) Field { return Field{key, value} }
func Bool(key string, value bool) Field     { return Field{key, value} }
func Err(err error) Field                   { return Field{"error", err} }

// logrusLogger реализация Logger поверх logrus.Entry
type logrusLogger struct {
	entry *logrus.Entry
}

// New оборачивает готовый logrus.Logger
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NewWithOutput создает логгер с заданным выводом и уровнем.
// level принимает значения logrus ("debug", "info", "warn", "error").
func NewWithOutput(w io.Writer, level string, json bool) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return New(l), nil
}

var defaultLogger = func() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return New(l)
}()

// Default возвращает общий логгер по умолчанию (stderr, уровень info)
func Default() Logger {
	return defaultLogger
}

// Nop возвращает логгер, который ничего не пишет. Удобен в тестах.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return New(l)
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *logrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

// LogError логирует ошибку с дополнительной информацией.
// Если ошибка умеет отдавать свои поля (LogFields), они добавляются к записи.
func (l *logrusLogger) LogError(err error, msg string, fields ...Field) {
	if err == nil {
		l.Error(msg, fields...)
		return
	}

	errorFields := append(fields, Err(err))
	if fe, ok := err.(interface{ LogFields() []Field }); ok {
		errorFields = append(errorFields, fe.LogFields()...)
	}
	l.entry.WithFields(toLogrusFields(errorFields)).Error(msg)
}

// WithComponent создает logger с указанным компонентом
func (l *logrusLogger) WithComponent(component string) Logger {
	return &logrusLogger{entry: l.entry.WithField("component", component)}
}

// WithFields создает logger с дополнительными полями
func (l *logrusLogger) WithFields(fields ...Field) Logger {
	return &logrusLogger{entry: l.entry.WithFields(toLogrusFields(fields))}
}

func (l *logrusLogger) IsDebug() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
