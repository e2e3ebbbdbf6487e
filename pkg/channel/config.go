package channel

import (
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/logging"
)

// Config содержит конфигурацию канального менеджера.
// Позволяет настроить:
//   - Набор локально поддерживаемых голосовых кодеков и их предпочтения
//   - Набор видео кодеков
//   - Логгер
type Config struct {
	AudioCodecs []codec.Codec      // Голосовые кодеки, предпочтение задается полем Preference
	VideoCodecs []codec.VideoCodec // Видео кодеки, пустой список отключает видео

	Logger logging.Logger // Логгер, nil означает logging.Default()
}

// DefaultConfig возвращает конфигурацию по умолчанию:
//   - Голос: ISAC, G722, PCMU, PCMA
//   - Видео: H264 640x480@30
func DefaultConfig() *Config {
	return &Config{
		AudioCodecs: []codec.Codec{
			codec.NewCodec(103, "ISAC", 16000, codec.BitRateUnspecified, 1, 4),
			codec.NewCodec(9, "G722", 16000, 64000, 1, 3),
			codec.NewCodec(0, "PCMU", 8000, 64000, 1, 2),
			codec.NewCodec(8, "PCMA", 8000, 64000, 1, 1),
		},
		VideoCodecs: []codec.VideoCodec{
			codec.NewVideoCodec(97, "H264", 640, 480, 30, 1),
		},
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if len(c.AudioCodecs) == 0 {
		return fmt.Errorf("AudioCodecs не может быть пустым")
	}

	for i, a := range c.AudioCodecs {
		if a.ID < 0 || a.ID > 127 {
			return fmt.Errorf("некорректный payload type %d у кодека %s", a.ID, a.Name)
		}
		if a.Name == "" {
			return fmt.Errorf("у кодека с payload type %d нет имени", a.ID)
		}
		if _, dup := codec.FindCodec(c.AudioCodecs[:i], a); dup {
			return fmt.Errorf("кодек %s указан дважды", a)
		}
	}

	for i, v := range c.VideoCodecs {
		if v.ID < 0 || v.ID > 127 {
			return fmt.Errorf("некорректный payload type %d у видео кодека %s", v.ID, v.Name)
		}
		if v.Name == "" {
			return fmt.Errorf("у видео кодека с payload type %d нет имени", v.ID)
		}
		if _, dup := codec.FindVideoCodec(c.VideoCodecs[:i], v); dup {
			return fmt.Errorf("видео кодек %s указан дважды", v)
		}
	}

	return nil
}

// Copy создает копию конфигурации
func (c *Config) Copy() *Config {
	out := *c
	out.AudioCodecs = append([]codec.Codec(nil), c.AudioCodecs...)
	out.VideoCodecs = append([]codec.VideoCodec(nil), c.VideoCodecs...)
	return &out
}
