package phone

import (
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/translator"
	"mellium.im/xmpp/jid"
)

// Config конфигурация клиента медиа сессий
type Config struct {
	// LocalJid адрес локальной стороны, от имени которой создаются сессии.
	// Клиент хранит адрес в нормализованном виде (PRECIS).
	LocalJid string

	// LegacyVoiceCodecs кодеки для пиров, не передающих голосовых payload-type.
	// nil означает translator.DefaultLegacyVoiceCodecs().
	LegacyVoiceCodecs []codec.Codec

	// PanicOnInvariantViolation завершает работу паникой, если транспорт
	// сообщает о сессии, неизвестной реестру. При false нарушение только
	// логируется.
	PanicOnInvariantViolation bool

	Logger  logging.Logger // nil означает logging.Default()
	Metrics *MetricsConfig // nil отключает метрики
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig(localJid string) *Config {
	return &Config{
		LocalJid:                  localJid,
		LegacyVoiceCodecs:         translator.DefaultLegacyVoiceCodecs(),
		PanicOnInvariantViolation: true,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	local, err := jid.Parse(c.LocalJid)
	if err != nil {
		return fmt.Errorf("некорректный LocalJid %q: %w", c.LocalJid, err)
	}
	if local.Localpart() == "" {
		return fmt.Errorf("LocalJid %q должен содержать имя пользователя", c.LocalJid)
	}
	for _, lc := range c.LegacyVoiceCodecs {
		if lc.ID < 0 || lc.ID > 127 {
			return fmt.Errorf("некорректный payload type %d в LegacyVoiceCodecs", lc.ID)
		}
	}
	return nil
}
