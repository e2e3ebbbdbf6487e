// Package translator переводит медиа описание сессии в XML представление
// описаний "phone" и "video" и обратно, а также строит описания offer и
// accept по локальным возможностям канального уровня.
package translator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
)

// ErrUnexpectedElement корневой элемент не является описанием phone или video
var ErrUnexpectedElement = errors.New("element is not a phone or video description")

// DefaultLegacyVoiceCodecs кодеки, которые предполагаются у старых клиентов,
// не передающих ни одного голосового payload-type. Порядок значим.
func DefaultLegacyVoiceCodecs() []codec.Codec {
	return []codec.Codec{
		codec.NewCodec(103, "ISAC", 16000, codec.BitRateUnspecified, 1, 1),
		codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0),
	}
}

// Translator преобразует описания между объектной и XML формами
type Translator struct {
	// LegacyVoiceCodecs подставляются при разборе, если в описании нет
	// ни одного голосового payload-type. nil означает DefaultLegacyVoiceCodecs.
	LegacyVoiceCodecs []codec.Codec
}

// New создает транслятор с кодеками совместимости по умолчанию
func New() *Translator {
	return &Translator{LegacyVoiceCodecs: DefaultLegacyVoiceCodecs()}
}

func (t *Translator) legacyCodecs() []codec.Codec {
	if t == nil || t.LegacyVoiceCodecs == nil {
		return DefaultLegacyVoiceCodecs()
	}
	return t.LegacyVoiceCodecs
}

// Decode разбирает XML описание.
//
// Отсутствующие или некорректные числовые атрибуты принимают значения по
// умолчанию, payload-type без атрибута id пропускается. Если голосовых
// payload-type нет совсем, подставляются кодеки совместимости.
func (t *Translator) Decode(elem *xmpp.Element) (*description.MediaSessionDescription, error) {
	if elem == nil {
		return nil, fmt.Errorf("%w: nil element", ErrUnexpectedElement)
	}
	if elem.Name != xmpp.QNPhoneDescription && elem.Name != xmpp.QNVideoDescription {
		return nil, fmt.Errorf("%w: {%s}%s", ErrUnexpectedElement, elem.Name.Space, elem.Name.Local)
	}

	desc := description.New()

	// голосовые кодеки
	voicePayloadTypes := elem.ElementsNamed(xmpp.QNPhonePayloadType)
	for _, pt := range voicePayloadTypes {
		if !pt.HasAttr(xmpp.QNPayloadTypeID) {
			continue
		}
		desc.Voice().AddCodec(codec.NewCodec(
			intAttr(pt, xmpp.QNPayloadTypeID, 0),
			pt.Attr(xmpp.QNPayloadTypeName),
			intAttr(pt, xmpp.QNPayloadTypeClockRate, 0),
			intAttr(pt, xmpp.QNPayloadTypeBitRate, 0),
			intAttr(pt, xmpp.QNPayloadTypeChannels, 1),
			0,
		))
	}

	// Старые клиенты не передают голосовых кодеков вовсе
	if len(voicePayloadTypes) == 0 {
		for _, c := range t.legacyCodecs() {
			desc.Voice().AddCodec(c)
		}
	}

	// видео кодеки, без подстановки по умолчанию
	for _, pt := range elem.ElementsNamed(xmpp.QNVideoPayloadType) {
		if !pt.HasAttr(xmpp.QNPayloadTypeID) {
			continue
		}
		desc.Video().AddCodec(codec.NewVideoCodec(
			intAttr(pt, xmpp.QNPayloadTypeID, 0),
			pt.Attr(xmpp.QNPayloadTypeName),
			intAttr(pt, xmpp.QNPayloadTypeWidth, 0),
			intAttr(pt, xmpp.QNPayloadTypeHeight, 0),
			intAttr(pt, xmpp.QNPayloadTypeFramerate, 0),
			0,
		))
	}

	// ssrc, если есть
	if src := elem.FirstNamed(xmpp.QNPhoneSrcID); src != nil {
		desc.Voice().SetSSRC(parseUint32(src.BodyText()))
	}
	if src := elem.FirstNamed(xmpp.QNVideoSrcID); src != nil {
		desc.Video().SetSSRC(parseUint32(src.BodyText()))
	}

	return desc, nil
}

// Encode строит XML описание.
//
// Контейнер - описание video, если есть хотя бы один видео кодек, иначе phone.
// У голосовых payload-type атрибуты clockrate, bitrate и channels пишутся
// только при значениях больше значений по умолчанию, а у видео все атрибуты
// пишутся всегда. Эта асимметрия сохранена для совместимости с существующими
// клиентами.
func (t *Translator) Encode(desc *description.MediaSessionDescription) (*xmpp.Element, error) {
	if desc == nil {
		return nil, errors.New("nil description")
	}

	video := desc.HasVideo()
	container := xmpp.NewElement(xmpp.QNPhoneDescription)
	if video {
		container = xmpp.NewElement(xmpp.QNVideoDescription)
	}

	for _, c := range desc.Voice().Codecs() {
		pt := xmpp.NewElement(xmpp.QNPhonePayloadType)
		pt.SetAttr(xmpp.QNPayloadTypeID, strconv.Itoa(c.ID))
		pt.SetAttr(xmpp.QNPayloadTypeName, c.Name)
		if c.ClockRate > 0 {
			pt.SetAttr(xmpp.QNPayloadTypeClockRate, strconv.Itoa(c.ClockRate))
		}
		if c.BitRate > 0 {
			pt.SetAttr(xmpp.QNPayloadTypeBitRate, strconv.Itoa(c.BitRate))
		}
		if c.Channels > 1 {
			pt.SetAttr(xmpp.QNPayloadTypeChannels, strconv.Itoa(c.Channels))
		}
		container.AddElement(pt)
	}

	if video {
		for _, c := range desc.Video().Codecs() {
			pt := xmpp.NewElement(xmpp.QNVideoPayloadType)
			pt.SetAttr(xmpp.QNPayloadTypeID, strconv.Itoa(c.ID))
			pt.SetAttr(xmpp.QNPayloadTypeName, c.Name)
			pt.SetAttr(xmpp.QNPayloadTypeWidth, strconv.Itoa(c.Width))
			pt.SetAttr(xmpp.QNPayloadTypeHeight, strconv.Itoa(c.Height))
			pt.SetAttr(xmpp.QNPayloadTypeFramerate, strconv.Itoa(c.Framerate))
			container.AddElement(pt)
		}
	}

	// ssrc: пустой src-id означает поток с еще не назначенным идентификатором
	if desc.Voice().SSRCSet() {
		container.AddElement(srcIDElement(xmpp.QNPhoneSrcID, desc.Voice().SSRC()))
	}
	if video && desc.Video().SSRCSet() {
		container.AddElement(srcIDElement(xmpp.QNVideoSrcID, desc.Video().SSRC()))
	}

	return container, nil
}

func srcIDElement(name xmpp.QName, ssrc uint32) *xmpp.Element {
	el := xmpp.NewElement(name)
	if ssrc != 0 {
		el.SetBodyText(strconv.FormatUint(uint64(ssrc), 10))
	}
	return el
}

// intAttr читает целочисленный атрибут; пустое или некорректное значение
// заменяется значением по умолчанию
func intAttr(el *xmpp.Element, name xmpp.QName, def int) int {
	val := el.Attr(name)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return n
}

// parseUint32 разбирает десятичное тело src-id, ошибка дает 0
func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
