package channel

import (
	"testing"

	"github.com/arzzra/jingle_phone/pkg/codec"
	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/session"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession минимальная сессия с заданными описаниями
type stubSession struct {
	id        session.ID
	initiator bool
	local     session.Description
	remote    session.Description
}

func (s *stubSession) ID() session.ID                             { return s.id }
func (s *stubSession) Type() string                               { return "" }
func (s *stubSession) LocalName() string                          { return "alice@example.com" }
func (s *stubSession) RemoteName() string                         { return "bob@example.com" }
func (s *stubSession) Initiator() bool                            { return s.initiator }
func (s *stubSession) State() session.State                       { return session.StateInit }
func (s *stubSession) LocalDescription() session.Description      { return s.local }
func (s *stubSession) RemoteDescription() session.Description     { return s.remote }
func (s *stubSession) Initiate(string, session.Description) error { return nil }
func (s *stubSession) Accept(session.Description) error           { return nil }
func (s *stubSession) Reject() error                              { return nil }
func (s *stubSession) Terminate() error                           { return nil }
func (s *stubSession) OnStateChange(session.StateHandler)         {}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = logging.Nop()
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func acceptedDescription(ssrc uint32) *description.MediaSessionDescription {
	d := description.New()
	d.Voice().AddCodec(codec.NewCodec(0, "PCMU", 8000, 64000, 1, 0))
	d.Voice().SetSSRC(ssrc)
	return d
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no audio", func(c *Config) { c.AudioCodecs = nil }, true},
		{"bad payload type", func(c *Config) { c.AudioCodecs[0].ID = 128 }, true},
		{"empty name", func(c *Config) { c.AudioCodecs[0].Name = "" }, true},
		{"duplicate audio", func(c *Config) {
			c.AudioCodecs = append(c.AudioCodecs, codec.NewCodec(0, "pcmu", 8000, 0, 1, 0))
		}, true},
		{"duplicate video", func(c *Config) {
			c.VideoCodecs = append(c.VideoCodecs, c.VideoCodecs[0])
		}, true},
		{"no video", func(c *Config) { c.VideoCodecs = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewManager_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger = logging.Nop()
	m, err := NewManager(cfg)
	require.NoError(t, err)

	cfg.AudioCodecs[0].Name = "CHANGED"
	assert.Equal(t, "ISAC", m.SupportedAudioCodecs()[0].Name)

	// возвращается копия
	m.SupportedAudioCodecs()[0].Name = "CHANGED"
	assert.Equal(t, "ISAC", m.SupportedAudioCodecs()[0].Name)

	_, err = NewManager(&Config{})
	assert.Error(t, err)
}

func TestManager_FindCodec(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, m.FindCodec(codec.NewCodec(0, "pcmu", 0, 0, 0, 0)))
	assert.False(t, m.FindCodec(codec.NewCodec(0, "PCMA", 8000, 0, 1, 0)))
	assert.True(t, m.FindVideoCodec(codec.NewVideoCodec(97, "H264", 0, 0, 0, 0)))
	assert.False(t, m.FindVideoCodec(codec.NewVideoCodec(96, "VP8", 0, 0, 0, 0)))
}

func TestManager_SetChannelsEnabled(t *testing.T) {
	m := newTestManager(t)
	s1 := &stubSession{id: "s1"}
	s2 := &stubSession{id: "s2"}

	m.SetChannelsEnabled(7, []session.Session{s1, s2}, true)
	assert.Equal(t, 2, m.Channels())
	assert.Equal(t, 2, m.EnabledChannels())

	ch, ok := m.Channel("s1")
	require.True(t, ok)
	assert.Equal(t, uint32(7), ch.CallID)
	assert.True(t, ch.Enabled)
	assert.False(t, ch.Negotiated)

	m.SetChannelsEnabled(7, []session.Session{s1}, false)
	assert.Equal(t, 1, m.EnabledChannels())

	m.ReleaseSession("s1")
	m.ReleaseSession("s1")
	assert.Equal(t, 1, m.Channels())
	_, ok = m.Channel("s1")
	assert.False(t, ok)
}

func TestManager_NegotiatesFromAccept(t *testing.T) {
	m := newTestManager(t)

	// инициатор: accept пришел от пира
	initiator := &stubSession{id: "out", initiator: true, remote: acceptedDescription(4242)}
	m.UpdateSession(initiator)

	ch, ok := m.Channel("out")
	require.True(t, ok)
	assert.True(t, ch.Negotiated)
	assert.Equal(t, "PCMU", ch.AudioCodec.Name)
	assert.Equal(t, uint32(4242), ch.RemoteSSRC)
	assert.False(t, ch.HasVideo)

	// принимающая сторона: accept локальный
	d := acceptedDescription(0)
	d.Video().AddCodec(codec.NewVideoCodec(97, "H264", 320, 240, 15, 0))
	receiver := &stubSession{id: "in", local: d}
	m.UpdateSession(receiver)

	ch, ok = m.Channel("in")
	require.True(t, ok)
	assert.True(t, ch.Negotiated)
	assert.True(t, ch.HasVideo)
	assert.Equal(t, 320, ch.VideoCodec.Width)
}

func TestManager_Packetize(t *testing.T) {
	m := newTestManager(t)
	s := &stubSession{id: "s", initiator: true, remote: acceptedDescription(1)}

	_, err := m.Packetize("s", []byte{1}, 160)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	m.SetChannelsEnabled(1, []session.Session{&stubSession{id: "s"}}, false)
	_, err = m.Packetize("s", []byte{1}, 160)
	assert.ErrorIs(t, err, ErrChannelDisabled)

	m.SetChannelsEnabled(1, []session.Session{&stubSession{id: "s"}}, true)
	_, err = m.Packetize("s", []byte{1}, 160)
	assert.ErrorIs(t, err, ErrNotNegotiated)

	m.UpdateSession(s)
	first, err := m.Packetize("s", make([]byte, 160), 160)
	require.NoError(t, err)
	second, err := m.Packetize("s", make([]byte, 160), 160)
	require.NoError(t, err)

	ch, _ := m.Channel("s")
	assert.Equal(t, uint8(2), first.Version)
	assert.Equal(t, uint8(0), first.PayloadType)
	assert.Equal(t, ch.LocalSSRC, first.SSRC)
	assert.Equal(t, first.SequenceNumber+1, second.SequenceNumber)
	assert.Equal(t, first.Timestamp+160, second.Timestamp)

	raw, err := first.Marshal()
	require.NoError(t, err)
	var parsed rtp.Packet
	require.NoError(t, parsed.Unmarshal(raw))
	assert.Equal(t, first.SSRC, parsed.SSRC)
	assert.Len(t, parsed.Payload, 160)
}
