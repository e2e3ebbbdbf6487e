package translator

import (
	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/description"
)

// Capabilities локальные медиа возможности, которые сообщает канальный уровень
type Capabilities interface {
	SupportedAudioCodecs() []codec.Codec
	SupportedVideoCodecs() []codec.VideoCodec
	// FindCodec сообщает, поддерживается ли кодек той же идентичности
	FindCodec(c codec.Codec) bool
	FindVideoCodec(c codec.VideoCodec) bool
}

// BuildOffer строит описание offer из всех локально поддерживаемых кодеков.
// Видео кодеки добавляются только для видео звонка.
func BuildOffer(caps Capabilities, video bool) *description.MediaSessionDescription {
	offer := description.New()

	for _, c := range caps.SupportedAudioCodecs() {
		offer.Voice().AddCodec(c)
	}
	if video {
		for _, c := range caps.SupportedVideoCodecs() {
			offer.Video().AddCodec(c)
		}
	}

	offer.Sort()
	return offer
}

// BuildAccept строит описание accept как пересечение offer с локальными
// возможностями. В ответ попадают кодеки с параметрами из offer, а не
// локальные: так пир получает ровно то, что предложил.
func BuildAccept(offer *description.MediaSessionDescription, caps Capabilities) *description.MediaSessionDescription {
	accept := description.New()
	if offer == nil {
		return accept
	}

	for _, c := range offer.Voice().Codecs() {
		if caps.FindCodec(c) {
			accept.Voice().AddCodec(c)
		}
	}

	// видео согласуется, только если оно есть в offer
	if offer.HasVideo() {
		for _, c := range offer.Video().Codecs() {
			if caps.FindVideoCodec(c) {
				accept.Video().AddCodec(c)
			}
		}
	}

	accept.Sort()
	return accept
}
