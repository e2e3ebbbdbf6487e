// Package codec описывает аудио и видео кодеки, участвующие в согласовании
// медиа возможностей между двумя пирами.
//
// Кодеки являются значениями: их идентичность для целей согласования
// определяется парой (ID, Name), имя сравнивается без учета регистра.
// Частота, битрейт и число каналов в идентичность не входят.
package codec

import (
	"fmt"
	"strings"
)

// Значения BitRate с особым смыслом
const (
	// BitRateUnspecified битрейт не задан (адаптивный кодек)
	BitRateUnspecified = -1
	// BitRateNotTransmitted битрейт не передается по сети
	BitRateNotTransmitted = 0
)

// VideoClockRate частота RTP для видео кодеков
const VideoClockRate = 90000

// Codec описывает аудио кодек.
// Нулевое значение - "пустой" кодек, используется как sentinel.
type Codec struct {
	ID         int    // RTP payload type
	Name       string // Имя кодека, например "PCMU"
	ClockRate  int    // Частота дискретизации, 0 - не задана
	BitRate    int    // Битрейт в бит/с, см. BitRateUnspecified
	Channels   int    // Количество каналов, >= 1
	Preference int    // Ранг предпочтения, больше - лучше
}

// NewCodec создает аудио кодек
func NewCodec(id int, name string, clockRate, bitRate, channels, preference int) Codec {
	return Codec{
		ID:         id,
		Name:       name,
		ClockRate:  clockRate,
		BitRate:    bitRate,
		Channels:   channels,
		Preference: preference,
	}
}

// NullCodec возвращает пустой кодек (id 0, пустое имя)
func NullCodec() Codec {
	return Codec{Channels: 1}
}

// IsNull проверяет, является ли кодек пустым
func (c Codec) IsNull() bool {
	return c.ID == 0 && c.Name == ""
}

// Matches сравнивает идентичность кодеков: ID и имя без учета регистра
func (c Codec) Matches(other Codec) bool {
	return c.ID == other.ID && strings.EqualFold(c.Name, other.Name)
}

// RTPMap возвращает значение для SDP атрибута rtpmap без payload type,
// например "opus/48000/2"
func (c Codec) RTPMap() string {
	if c.Channels > 1 {
		return fmt.Sprintf("%s/%d/%d", c.Name, c.ClockRate, c.Channels)
	}
	return fmt.Sprintf("%s/%d", c.Name, c.ClockRate)
}

func (c Codec) String() string {
	return fmt.Sprintf("%s/%d/%d[%d] pref=%d", c.Name, c.ClockRate, c.Channels, c.ID, c.Preference)
}

// VideoCodec описывает видео кодек
type VideoCodec struct {
	ID         int
	Name       string
	Width      int
	Height     int
	Framerate  int
	Preference int
}

// NewVideoCodec создает видео кодек
func NewVideoCodec(id int, name string, width, height, framerate, preference int) VideoCodec {
	return VideoCodec{
		ID:         id,
		Name:       name,
		Width:      width,
		Height:     height,
		Framerate:  framerate,
		Preference: preference,
	}
}

// NullVideoCodec возвращает пустой видео кодек
func NullVideoCodec() VideoCodec {
	return VideoCodec{}
}

// IsNull проверяет, является ли видео кодек пустым
func (c VideoCodec) IsNull() bool {
	return c.ID == 0 && c.Name == ""
}

// Matches сравнивает идентичность видео кодеков
func (c VideoCodec) Matches(other VideoCodec) bool {
	return c.ID == other.ID && strings.EqualFold(c.Name, other.Name)
}

// RTPMap возвращает значение для SDP атрибута rtpmap
func (c VideoCodec) RTPMap() string {
	return fmt.Sprintf("%s/%d", c.Name, VideoClockRate)
}

func (c VideoCodec) String() string {
	return fmt.Sprintf("%s/%dx%d/%d[%d] pref=%d", c.Name, c.Width, c.Height, c.Framerate, c.ID, c.Preference)
}

// FindCodec ищет в списке кодек той же идентичности
func FindCodec(list []Codec, c Codec) (Codec, bool) {
	for _, candidate := range list {
		if candidate.Matches(c) {
			return candidate, true
		}
	}
	return Codec{}, false
}

// FindVideoCodec ищет в списке видео кодек той же идентичности
func FindVideoCodec(list []VideoCodec, c VideoCodec) (VideoCodec, bool) {
	for _, candidate := range list {
		if candidate.Matches(c) {
			return candidate, true
		}
	}
	return VideoCodec{}, false
}
