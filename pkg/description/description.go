// Package description содержит медиа описание сессии: упорядоченные списки
// голосовых и видео кодеков и необязательные идентификаторы источников (ssrc).
package description

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/session"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
)

// ErrNotMediaDescription описание сессии не является медиа описанием
var ErrNotMediaDescription = errors.New("session description is not a media session description")

// ssrcState идентификатор источника с тремя состояниями:
// не задан, задан нулем, задан значением.
type ssrcState struct {
	value uint32
	set   bool
}

// SSRC возвращает значение идентификатора источника
func (s *ssrcState) SSRC() uint32 { return s.value }

// SSRCSet сообщает, задан ли идентификатор источника
func (s *ssrcState) SSRCSet() bool { return s.set }

// SetSSRC задает идентификатор источника. Вернуть состояние "не задан" нельзя.
func (s *ssrcState) SetSSRC(v uint32) {
	s.value = v
	s.set = true
}

// VoiceDescription голосовая часть описания
type VoiceDescription struct {
	ssrcState
	codecs []codec.Codec
}

// Codecs возвращает список кодеков в текущем порядке
func (d *VoiceDescription) Codecs() []codec.Codec {
	return d.codecs
}

// AddCodec добавляет кодек в конец списка.
// Кодек той же идентичности не добавляется повторно, тогда возвращается false.
func (d *VoiceDescription) AddCodec(c codec.Codec) bool {
	if _, exists := codec.FindCodec(d.codecs, c); exists {
		return false
	}
	d.codecs = append(d.codecs, c)
	return true
}

// Sort сортирует кодеки по убыванию предпочтения, равные сохраняют порядок
func (d *VoiceDescription) Sort() {
	sort.SliceStable(d.codecs, func(i, j int) bool {
		return d.codecs[i].Preference > d.codecs[j].Preference
	})
}

// VideoDescription видео часть описания
type VideoDescription struct {
	ssrcState
	codecs []codec.VideoCodec
}

// Codecs возвращает список видео кодеков в текущем порядке
func (d *VideoDescription) Codecs() []codec.VideoCodec {
	return d.codecs
}

// AddCodec добавляет видео кодек, дубликаты по идентичности игнорируются
func (d *VideoDescription) AddCodec(c codec.VideoCodec) bool {
	if _, exists := codec.FindVideoCodec(d.codecs, c); exists {
		return false
	}
	d.codecs = append(d.codecs, c)
	return true
}

// Sort сортирует видео кодеки по убыванию предпочтения
func (d *VideoDescription) Sort() {
	sort.SliceStable(d.codecs, func(i, j int) bool {
		return d.codecs[i].Preference > d.codecs[j].Preference
	})
}

// MediaSessionDescription медиа описание сессии.
// Реализует session.Description.
type MediaSessionDescription struct {
	voice VoiceDescription
	video VideoDescription
}

// New создает пустое описание
func New() *MediaSessionDescription {
	return &MediaSessionDescription{}
}

// Voice возвращает голосовую часть
func (d *MediaSessionDescription) Voice() *VoiceDescription { return &d.voice }

// Video возвращает видео часть
func (d *MediaSessionDescription) Video() *VideoDescription { return &d.video }

// HasVideo сообщает, есть ли в описании видео кодеки
func (d *MediaSessionDescription) HasVideo() bool {
	return len(d.video.codecs) > 0
}

// Sort сортирует оба списка кодеков
func (d *MediaSessionDescription) Sort() {
	d.voice.Sort()
	d.video.Sort()
}

// ContentType возвращает пространство имен описания
func (d *MediaSessionDescription) ContentType() string {
	if d.HasVideo() {
		return xmpp.NSVideo
	}
	return xmpp.NSPhone
}

// Clone возвращает глубокую копию описания
func (d *MediaSessionDescription) Clone() *MediaSessionDescription {
	out := &MediaSessionDescription{
		voice: VoiceDescription{ssrcState: d.voice.ssrcState},
		video: VideoDescription{ssrcState: d.video.ssrcState},
	}
	out.voice.codecs = append([]codec.Codec(nil), d.voice.codecs...)
	out.video.codecs = append([]codec.VideoCodec(nil), d.video.codecs...)
	return out
}

func (d *MediaSessionDescription) String() string {
	return fmt.Sprintf("voice=%v ssrc(%d,%t) video=%v ssrc(%d,%t)",
		d.voice.codecs, d.voice.value, d.voice.set,
		d.video.codecs, d.video.value, d.video.set)
}

// FromSession приводит обобщенное описание сессии к медиа описанию
func FromSession(desc session.Description) (*MediaSessionDescription, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil description", ErrNotMediaDescription)
	}
	md, ok := desc.(*MediaSessionDescription)
	if !ok || md == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotMediaDescription, desc)
	}
	return md, nil
}
