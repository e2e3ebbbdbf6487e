package description

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/pion/sdp/v3"
)

// Ошибки SDP моста
var (
	ErrNoVoiceCodecs      = errors.New("description has no voice codecs")
	ErrInvalidPayloadType = errors.New("codec id is not a valid RTP payload type")
)

// SDPParams параметры для представления описания в виде SDP.
// Определяют транспортную часть, которой нет в XML описании.
type SDPParams struct {
	SessionID   uint64
	SessionName string
	LocalIP     string
	AudioPort   int
	VideoPort   int
}

// ToSDP представляет согласованное описание в виде SDP (RFC 4566).
//
// Порядок форматов в m= строке повторяет порядок кодеков. Ненулевой ssrc
// передается атрибутом a=ssrc; ssrc, заданный нулем, в SDP не выражается.
// Параметры видео передаются в fmtp: width, height, framerate.
func (d *MediaSessionDescription) ToSDP(params SDPParams) (*sdp.SessionDescription, error) {
	if len(d.voice.codecs) == 0 {
		return nil, ErrNoVoiceCodecs
	}
	if params.SessionID == 0 {
		params.SessionID = uint64(time.Now().UnixNano())
	}
	if params.SessionName == "" {
		params.SessionName = "-"
	}

	offer := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      params.SessionID,
			SessionVersion: 2,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: params.LocalIP,
		},
		SessionName: sdp.SessionName(params.SessionName),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: params.LocalIP},
		},
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}

	// Аудио
	audio := newMediaDescription("audio", params.AudioPort)
	for _, c := range d.voice.codecs {
		if err := validPayloadType(c.ID); err != nil {
			return nil, fmt.Errorf("%w: %s", err, c)
		}
		audio.MediaName.Formats = append(audio.MediaName.Formats, strconv.Itoa(c.ID))
		audio.Attributes = append(audio.Attributes,
			sdp.NewAttribute("rtpmap", fmt.Sprintf("%d %s", c.ID, c.RTPMap())))
	}
	if d.voice.set && d.voice.value != 0 {
		audio.Attributes = append(audio.Attributes,
			sdp.NewAttribute("ssrc", strconv.FormatUint(uint64(d.voice.value), 10)))
	}
	audio.Attributes = append(audio.Attributes, sdp.NewPropertyAttribute("sendrecv"))
	offer.MediaDescriptions = append(offer.MediaDescriptions, audio)

	// Видео, если есть
	if d.HasVideo() {
		video := newMediaDescription("video", params.VideoPort)
		for _, c := range d.video.codecs {
			if err := validPayloadType(c.ID); err != nil {
				return nil, fmt.Errorf("%w: %s", err, c)
			}
			video.MediaName.Formats = append(video.MediaName.Formats, strconv.Itoa(c.ID))
			video.Attributes = append(video.Attributes,
				sdp.NewAttribute("rtpmap", fmt.Sprintf("%d %s", c.ID, c.RTPMap())),
				sdp.NewAttribute("fmtp", fmt.Sprintf("%d width=%d;height=%d;framerate=%d",
					c.ID, c.Width, c.Height, c.Framerate)))
		}
		if d.video.set && d.video.value != 0 {
			video.Attributes = append(video.Attributes,
				sdp.NewAttribute("ssrc", strconv.FormatUint(uint64(d.video.value), 10)))
		}
		video.Attributes = append(video.Attributes, sdp.NewPropertyAttribute("sendrecv"))
		offer.MediaDescriptions = append(offer.MediaDescriptions, video)
	}

	return offer, nil
}

func newMediaDescription(media string, port int) *sdp.MediaDescription {
	return &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:  media,
			Port:   sdp.RangedPort{Value: port},
			Protos: []string{"RTP", "AVP"},
		},
	}
}

func validPayloadType(id int) error {
	if id < 0 || id > 127 {
		return ErrInvalidPayloadType
	}
	return nil
}

// FromSDP строит описание из SDP.
//
// Кодеки читаются из rtpmap в порядке форматов m= строки, предпочтение
// убывает с позицией. Форматы без rtpmap пропускаются.
func FromSDP(sd *sdp.SessionDescription) (*MediaSessionDescription, error) {
	if sd == nil {
		return nil, errors.New("nil sdp")
	}

	desc := New()
	for _, md := range sd.MediaDescriptions {
		rtpmaps := attributeMap(md, "rtpmap")
		fmtps := attributeMap(md, "fmtp")

		switch md.MediaName.Media {
		case "audio":
			for i, format := range md.MediaName.Formats {
				c, ok := parseAudioRTPMap(format, rtpmaps[format])
				if !ok {
					continue
				}
				c.Preference = len(md.MediaName.Formats) - i
				desc.voice.AddCodec(c)
			}
			if ssrc, ok := parseSSRC(md); ok {
				desc.voice.SetSSRC(ssrc)
			}
		case "video":
			for i, format := range md.MediaName.Formats {
				c, ok := parseVideoRTPMap(format, rtpmaps[format], fmtps[format])
				if !ok {
					continue
				}
				c.Preference = len(md.MediaName.Formats) - i
				desc.video.AddCodec(c)
			}
			if ssrc, ok := parseSSRC(md); ok {
				desc.video.SetSSRC(ssrc)
			}
		}
	}
	return desc, nil
}

// attributeMap индексирует атрибуты вида "<pt> <value>" по payload type
func attributeMap(md *sdp.MediaDescription, key string) map[string]string {
	out := make(map[string]string)
	for _, attr := range md.Attributes {
		if attr.Key != key {
			continue
		}
		parts := strings.SplitN(attr.Value, " ", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func parseAudioRTPMap(format, rtpmap string) (codec.Codec, bool) {
	id, err := strconv.Atoi(format)
	if err != nil || rtpmap == "" {
		return codec.Codec{}, false
	}

	parts := strings.Split(rtpmap, "/")
	c := codec.Codec{ID: id, Name: parts[0], Channels: 1}
	if len(parts) > 1 {
		c.ClockRate, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		if ch, err := strconv.Atoi(parts[2]); err == nil && ch > 0 {
			c.Channels = ch
		}
	}
	return c, true
}

func parseVideoRTPMap(format, rtpmap, fmtp string) (codec.VideoCodec, bool) {
	id, err := strconv.Atoi(format)
	if err != nil || rtpmap == "" {
		return codec.VideoCodec{}, false
	}

	c := codec.VideoCodec{ID: id, Name: strings.Split(rtpmap, "/")[0]}
	for _, param := range strings.Split(fmtp, ";") {
		kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
		if len(kv) != 2 {
			continue
		}
		v, err := strconv.Atoi(kv[1])
		if err != nil {
			continue
		}
		switch kv[0] {
		case "width":
			c.Width = v
		case "height":
			c.Height = v
		case "framerate":
			c.Framerate = v
		}
	}
	return c, true
}

func parseSSRC(md *sdp.MediaDescription) (uint32, bool) {
	value, ok := md.Attribute("ssrc")
	if !ok {
		return 0, false
	}
	field := strings.Fields(value)
	if len(field) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(field[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
