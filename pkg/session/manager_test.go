package session

import (
	"testing"

	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/xmpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textDescription struct {
	ns   string
	body string
}

func (d textDescription) ContentType() string { return d.ns }

// recordingClient тестовый клиент, записывающий события менеджера
type recordingClient struct {
	created   []Session
	inbound   []bool
	destroyed []ID
	states    map[ID][]State

	// onState вызывается из подписки на изменения состояния
	onState func(s Session, state State)
}

func newRecordingClient() *recordingClient {
	return &recordingClient{states: make(map[ID][]State)}
}

func (c *recordingClient) OnSessionCreate(s Session, receivedInitiate bool) {
	c.created = append(c.created, s)
	c.inbound = append(c.inbound, receivedInitiate)
	s.OnStateChange(func(s Session, state State) {
		c.states[s.ID()] = append(c.states[s.ID()], state)
		if c.onState != nil {
			c.onState(s, state)
		}
	})
}

func (c *recordingClient) OnSessionDestroy(s Session) {
	c.destroyed = append(c.destroyed, s.ID())
}

func (c *recordingClient) ParseDescription(elem *xmpp.Element) (Description, error) {
	return textDescription{ns: elem.Name.Space, body: elem.BodyText()}, nil
}

func (c *recordingClient) WriteDescription(desc Description) (*xmpp.Element, error) {
	td := desc.(textDescription)
	el := xmpp.NewElement(xmpp.QName{Space: td.ns, Local: "description"})
	el.SetBodyText(td.body)
	return el, nil
}

func newLinkedPair(t *testing.T) (*Manager, *recordingClient, *Manager, *recordingClient) {
	t.Helper()
	cfg := ManagerConfig{Logger: logging.Nop()}

	alice := NewManager(cfg)
	bob := NewManager(cfg)
	Link(alice, bob)

	aliceClient := newRecordingClient()
	bobClient := newRecordingClient()
	require.NoError(t, alice.AddClient(xmpp.NSPhone, aliceClient))
	require.NoError(t, bob.AddClient(xmpp.NSPhone, bobClient))
	return alice, aliceClient, bob, bobClient
}

func TestManager_AddRemoveClient(t *testing.T) {
	m := NewManager(ManagerConfig{Logger: logging.Nop()})
	c := newRecordingClient()

	require.NoError(t, m.AddClient(xmpp.NSPhone, c))
	assert.ErrorIs(t, m.AddClient(xmpp.NSPhone, c), ErrClientExists)

	got, ok := m.Client(xmpp.NSPhone)
	assert.True(t, ok)
	assert.Same(t, c, got)

	m.RemoveClient(xmpp.NSPhone)
	m.RemoveClient(xmpp.NSPhone)
	_, ok = m.Client(xmpp.NSPhone)
	assert.False(t, ok)

	_, err := m.CreateSession("alice@example.com", xmpp.NSPhone)
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestManager_InitiateAccept(t *testing.T) {
	alice, aliceClient, bob, bobClient := newLinkedPair(t)

	s, err := alice.CreateSession("alice@example.com", xmpp.NSPhone)
	require.NoError(t, err)
	require.Len(t, aliceClient.created, 1)
	assert.False(t, aliceClient.inbound[0])
	assert.True(t, s.Initiator())
	assert.Equal(t, StateInit, s.State())

	require.NoError(t, s.Initiate("bob@example.com", textDescription{ns: xmpp.NSPhone, body: "offer"}))
	assert.Equal(t, StateSentInitiate, s.State())

	require.Len(t, bobClient.created, 1)
	assert.True(t, bobClient.inbound[0])
	incoming := bobClient.created[0]
	assert.Equal(t, s.ID(), incoming.ID())
	assert.Equal(t, StateReceivedInitiate, incoming.State())
	assert.Equal(t, "alice@example.com", incoming.RemoteName())
	assert.Equal(t, textDescription{ns: xmpp.NSPhone, body: "offer"}, incoming.RemoteDescription())

	require.NoError(t, incoming.Accept(textDescription{ns: xmpp.NSPhone, body: "answer"}))
	assert.Equal(t, StateSentAccept, incoming.State())
	assert.Equal(t, StateReceivedAccept, s.State())
	assert.Equal(t, textDescription{ns: xmpp.NSPhone, body: "answer"}, s.RemoteDescription())

	require.NoError(t, s.Terminate())
	assert.Equal(t, 0, alice.Sessions())
	assert.Equal(t, 0, bob.Sessions())
	assert.Equal(t, []ID{s.ID()}, aliceClient.destroyed)
	assert.Equal(t, []ID{s.ID()}, bobClient.destroyed)
	assert.Equal(t, []State{StateReceivedInitiate, StateSentAccept, StateReceivedTerminate, StateDeinit}, bobClient.states[s.ID()])
}

func TestManager_RejectFromStateHandler(t *testing.T) {
	alice, aliceClient, bob, bobClient := newLinkedPair(t)

	bobClient.onState = func(s Session, state State) {
		if state == StateReceivedInitiate {
			require.NoError(t, s.Reject())
		}
	}

	s, err := alice.CreateSession("alice@example.com", xmpp.NSPhone)
	require.NoError(t, err)
	require.NoError(t, s.Initiate("bob@example.com", textDescription{ns: xmpp.NSPhone}))

	assert.Equal(t, StateDeinit, s.State())
	assert.Contains(t, aliceClient.states[s.ID()], StateReceivedReject)
	assert.Equal(t, []State{StateReceivedInitiate, StateSentReject, StateDeinit}, bobClient.states[s.ID()])
	assert.Equal(t, 0, alice.Sessions())
	assert.Equal(t, 0, bob.Sessions())
	assert.Equal(t, uint64(1), bob.Stats().TotalDestroyed)
}

func TestManager_InvalidTransitions(t *testing.T) {
	alice, _, _, _ := newLinkedPair(t)

	s, err := alice.CreateSession("alice@example.com", xmpp.NSPhone)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Accept(textDescription{ns: xmpp.NSPhone}), ErrInvalidTransition)
	assert.ErrorIs(t, s.Reject(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Terminate(), ErrInvalidTransition)
	assert.Equal(t, StateInit, s.State())
}

func TestManager_NoPeer(t *testing.T) {
	m := NewManager(ManagerConfig{Logger: logging.Nop()})
	require.NoError(t, m.AddClient(xmpp.NSPhone, newRecordingClient()))

	s, err := m.CreateSession("alice@example.com", xmpp.NSPhone)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Initiate("bob@example.com", textDescription{ns: xmpp.NSPhone}), ErrNoPeer)
}

func TestManager_HandleStanzaErrors(t *testing.T) {
	m := NewManager(ManagerConfig{Logger: logging.Nop()})
	require.NoError(t, m.AddClient(xmpp.NSPhone, newRecordingClient()))

	assert.ErrorIs(t, m.HandleStanza([]byte("<nope/>")), ErrBadStanza)
	assert.ErrorIs(t, m.HandleStanza([]byte(`<session xmlns="http://www.google.com/session" type="accept"/>`)), ErrBadStanza)
	assert.ErrorIs(t, m.HandleStanza([]byte(`<session xmlns="http://www.google.com/session" type="accept" id="x"/>`)), ErrSessionNotFound)
	assert.ErrorIs(t, m.HandleStanza([]byte(`<session xmlns="http://www.google.com/session" type="initiate" id="x"/>`)), ErrBadStanza)
	assert.ErrorIs(t, m.HandleStanza([]byte(`<session xmlns="http://www.google.com/session" type="initiate" id="x"><description xmlns="urn:other"/></session>`)), ErrNoClient)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ReceivedInitiate", StateReceivedInitiate.String())
	assert.Equal(t, "Unknown", State(99).String())
	assert.True(t, StateSentReject.IsFinal())
	assert.False(t, StateSentAccept.IsFinal())
}
