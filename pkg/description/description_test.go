package description

import (
	"testing"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
	"github.com/pion/sdp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherDescription struct{}

func (otherDescription) ContentType() string { return "urn:other" }

func voiceIDs(d *MediaSessionDescription) []int {
	var ids []int
	for _, c := range d.Voice().Codecs() {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestAddCodec_RejectsDuplicates(t *testing.T) {
	d := New()

	assert.True(t, d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0)))
	assert.False(t, d.Voice().AddCodec(codec.NewCodec(0, "pcmu", 16000, 0, 2, 9)))
	assert.True(t, d.Voice().AddCodec(codec.NewCodec(8, "PCMA", 8000, 64000, 1, 0)))
	require.Len(t, d.Voice().Codecs(), 2)
	assert.Equal(t, 8000, d.Voice().Codecs()[0].ClockRate, "first insertion wins")

	assert.True(t, d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 640, 480, 30, 0)))
	assert.False(t, d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 320, 240, 15, 0)))
	assert.Len(t, d.Video().Codecs(), 1)
}

func TestSort_StableDescending(t *testing.T) {
	d := New()
	d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0))
	d.Voice().AddCodec(codec.NewCodec(103, "ISAC", 16000, -1, 1, 5))
	d.Voice().AddCodec(codec.NewCodec(8, "PCMA", 8000, 64000, 1, 0))
	d.Voice().AddCodec(codec.NewCodec(9, "G722", 8000, 64000, 1, 5))
	d.Voice().AddCodec(codec.NewCodec(13, "CN", 8000, 0, 1, 1))

	d.Sort()
	assert.Equal(t, []int{103, 9, 13, 0, 8}, voiceIDs(d))

	// Идемпотентность и сохранение состава
	d.Sort()
	assert.Equal(t, []int{103, 9, 13, 0, 8}, voiceIDs(d))
	assert.Len(t, d.Voice().Codecs(), 5)
}

func TestSort_Video(t *testing.T) {
	d := New()
	d.Video().AddCodec(codec.NewVideoCodec(96, "VP8", 640, 480, 30, 1))
	d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 640, 480, 30, 2))
	d.Sort()
	assert.Equal(t, 97, d.Video().Codecs()[0].ID)
}

func TestSSRC_TriState(t *testing.T) {
	d := New()
	assert.False(t, d.Voice().SSRCSet())
	assert.Equal(t, uint32(0), d.Voice().SSRC())

	d.Voice().SetSSRC(0)
	assert.True(t, d.Voice().SSRCSet())
	assert.Equal(t, uint32(0), d.Voice().SSRC())

	d.Voice().SetSSRC(4294967295)
	assert.True(t, d.Voice().SSRCSet())
	assert.Equal(t, uint32(4294967295), d.Voice().SSRC())

	assert.False(t, d.Video().SSRCSet())
}

func TestContentType(t *testing.T) {
	d := New()
	d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0))
	assert.False(t, d.HasVideo())
	assert.Equal(t, xmpp.NSPhone, d.ContentType())

	d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 640, 480, 30, 0))
	assert.True(t, d.HasVideo())
	assert.Equal(t, xmpp.NSVideo, d.ContentType())
}

func TestClone_IsDeep(t *testing.T) {
	d := New()
	d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0))
	d.Voice().SetSSRC(7)

	c := d.Clone()
	c.Voice().AddCodec(codec.NewCodec(8, "PCMA", 8000, 64000, 1, 0))
	c.Video().SetSSRC(1)

	assert.Len(t, d.Voice().Codecs(), 1)
	assert.False(t, d.Video().SSRCSet())
	assert.Equal(t, uint32(7), c.Voice().SSRC())
}

func TestFromSession(t *testing.T) {
	d := New()
	got, err := FromSession(d)
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = FromSession(otherDescription{})
	assert.ErrorIs(t, err, ErrNotMediaDescription)

	_, err = FromSession(nil)
	assert.ErrorIs(t, err, ErrNotMediaDescription)

	var typedNil *MediaSessionDescription
	_, err = FromSession(typedNil)
	assert.ErrorIs(t, err, ErrNotMediaDescription)
}

func TestToSDP_RoundTrip(t *testing.T) {
	d := New()
	d.Voice().AddCodec(codec.NewCodec(111, "opus", 48000, 0, 2, 2))
	d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 1))
	d.Voice().SetSSRC(1234)
	d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 640, 480, 30, 1))
	d.Video().SetSSRC(0)

	offer, err := d.ToSDP(SDPParams{SessionID: 42, LocalIP: "127.0.0.1", AudioPort: 10000, VideoPort: 10002})
	require.NoError(t, err)
	require.Len(t, offer.MediaDescriptions, 2)
	assert.Equal(t, []string{"111", "0"}, offer.MediaDescriptions[0].MediaName.Formats)

	raw, err := offer.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "a=rtpmap:111 opus/48000/2")
	assert.Contains(t, string(raw), "a=ssrc:1234")

	var parsed sdp.SessionDescription
	require.NoError(t, parsed.Unmarshal(raw))

	back, err := FromSDP(&parsed)
	require.NoError(t, err)

	require.Len(t, back.Voice().Codecs(), 2)
	opus := back.Voice().Codecs()[0]
	assert.True(t, opus.Matches(codec.NewCodec(111, "opus", 0, 0, 0, 0)))
	assert.Equal(t, 48000, opus.ClockRate)
	assert.Equal(t, 2, opus.Channels)
	assert.Equal(t, 1, back.Voice().Codecs()[1].Channels)
	assert.Greater(t, opus.Preference, back.Voice().Codecs()[1].Preference)
	assert.True(t, back.Voice().SSRCSet())
	assert.Equal(t, uint32(1234), back.Voice().SSRC())

	require.Len(t, back.Video().Codecs(), 1)
	h264 := back.Video().Codecs()[0]
	assert.Equal(t, 640, h264.Width)
	assert.Equal(t, 480, h264.Height)
	assert.Equal(t, 30, h264.Framerate)
	assert.False(t, back.Video().SSRCSet(), "zero ssrc is not expressed in SDP")
}

func TestToSDP_Errors(t *testing.T) {
	_, err := New().ToSDP(SDPParams{LocalIP: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrNoVoiceCodecs)

	d := New()
	d.Voice().AddCodec(codec.NewCodec(200, "BAD", 8000, 0, 1, 0))
	_, err = d.ToSDP(SDPParams{LocalIP: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidPayloadType)

	_, err = FromSDP(nil)
	assert.Error(t, err)
}
