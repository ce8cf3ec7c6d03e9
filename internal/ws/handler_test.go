package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	saved   []string // room ids persisted, in order
	nextID  string
	nextTS  time.Time
	failErr error
}

func (s *fakeStore) save(roomID string) (*MessageRecord, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.saved = append(s.saved, roomID)
	return &MessageRecord{ID: s.nextID, CreatedAt: s.nextTS}, nil
}

func (s *fakeStore) SaveChannelMessage(_ context.Context, channelID, _, _ string) (*MessageRecord, error) {
	return s.save(channelID)
}

func (s *fakeStore) SaveDirectMessage(_ context.Context, conversationID, _, _ string) (*MessageRecord, error) {
	return s.save(conversationID)
}

type fakeDirectory struct {
	names map[string]string
}

func (d *fakeDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := d.names[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return name, nil
}

type fakeGate struct {
	allowed map[string]bool // channel id -> allowed
	err     error
}

func (g *fakeGate) CanJoinChannel(_ context.Context, _, channelID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.allowed[channelID], nil
}

type handlerFixture struct {
	rooms    *Rooms
	registry *Registry
	store    *fakeStore
	handler  *Handler
}

func newHandlerFixture() *handlerFixture {
	rooms := NewRooms()
	registry := NewRegistry(rooms, nil)
	store := &fakeStore{
		nextID: "msg-1",
		nextTS: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	directory := &fakeDirectory{names: map[string]string{
		"alice": "alice",
		"bob":   "bob",
	}}
	gate := &fakeGate{allowed: map[string]bool{"c1": true}}

	return &handlerFixture{
		rooms:    rooms,
		registry: registry,
		store:    store,
		handler:  NewHandler(registry, rooms, store, directory, gate),
	}
}

func (f *handlerFixture) connect(t *testing.T, userID string) *Client {
	t.Helper()
	c := newTestClient(userID)
	f.registry.Attach(userID, c)
	return c
}

func (f *handlerFixture) frame(t *testing.T, c *Client, raw string) {
	t.Helper()
	require.NoError(t, f.handler.HandleFrame(context.Background(), c, []byte(raw)))
}

func TestJoinChannelAuthorizedAcks(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"join_channel","channel_id":"c1"}`)

	assert.True(t, f.rooms.IsMember("channel:c1", "alice"))
	ack := recvFrame(t, alice)
	assert.Equal(t, "joined", ack["type"])
	assert.Equal(t, "c1", ack["channel_id"])
}

func TestJoinChannelDeniedSilently(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	// c2 is not authorized; the event is dropped with no reply.
	f.frame(t, alice, `{"type":"join_channel","channel_id":"c2"}`)

	assert.False(t, f.rooms.IsMember("channel:c2", "alice"))
	assertNoFrame(t, alice)
}

func TestJoinChannelMissingFieldDropped(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"join_channel"}`)

	assert.Equal(t, 0, f.rooms.RoomCount())
	assertNoFrame(t, alice)
}

func TestLeaveChannel(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"join_channel","channel_id":"c1"}`)
	recvFrame(t, alice) // ack
	f.frame(t, alice, `{"type":"leave_channel","channel_id":"c1"}`)

	assert.False(t, f.rooms.IsMember("channel:c1", "alice"))
	assertNoFrame(t, alice) // leave has no reply
}

func TestChannelMessageFanOutWithEcho(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	carol := f.connect(t, "carol")

	f.frame(t, alice, `{"type":"join_channel","channel_id":"c1"}`)
	f.frame(t, bob, `{"type":"join_channel","channel_id":"c1"}`)
	recvFrame(t, alice)
	recvFrame(t, bob)

	f.frame(t, alice, `{"type":"message","channel_id":"c1","content":"hi"}`)

	for _, c := range []*Client{alice, bob} {
		msg := recvFrame(t, c)
		assert.Equal(t, "message", msg["type"])
		assert.Equal(t, "msg-1", msg["id"])
		assert.Equal(t, "c1", msg["channel_id"])
		assert.Equal(t, "alice", msg["sender_id"])
		assert.Equal(t, "alice", msg["sender_username"])
		assert.Equal(t, "hi", msg["content"])
		assert.Equal(t, "2025-06-01T12:00:00Z", msg["created_at"])
	}
	// carol never joined c1 and receives nothing.
	assertNoFrame(t, carol)
}

func TestMessageWithoutJoinDropsBeforePersist(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"message","channel_id":"c1","content":"hi"}`)

	assert.Empty(t, f.store.saved, "no persistence call for an unjoined room")
	assertNoFrame(t, alice)
}

func TestMessageDeliveredToAllSenderDevices(t *testing.T) {
	f := newHandlerFixture()
	device1 := f.connect(t, "alice")
	device2 := f.connect(t, "alice")

	// Joined on device 1 only; subscription is per user.
	f.frame(t, device1, `{"type":"join_channel","channel_id":"c1"}`)
	recvFrame(t, device1)

	f.frame(t, device2, `{"type":"message","channel_id":"c1","content":"hi"}`)

	assert.Equal(t, "message", recvFrame(t, device1)["type"])
	assert.Equal(t, "message", recvFrame(t, device2)["type"])
}

func TestPersistenceFailureAbortsFanOut(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.frame(t, alice, `{"type":"join_channel","channel_id":"c1"}`)
	f.frame(t, bob, `{"type":"join_channel","channel_id":"c1"}`)
	recvFrame(t, alice)
	recvFrame(t, bob)

	f.store.failErr = errors.New("database down")
	err := f.handler.HandleFrame(context.Background(), alice, []byte(`{"type":"message","channel_id":"c1","content":"hi"}`))

	// The failure surfaces to this connection's loop and nothing is
	// broadcast, to anyone.
	require.Error(t, err)
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)

	// Membership state is untouched by the failed frame.
	assert.True(t, f.rooms.IsMember("channel:c1", "alice"))
	assert.True(t, f.rooms.IsMember("channel:c1", "bob"))
}

func TestDMJoinMessageLeave(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.frame(t, alice, `{"type":"join_dm","conversation_id":"d1"}`)
	ack := recvFrame(t, alice)
	assert.Equal(t, "joined_dm", ack["type"])
	assert.Equal(t, "d1", ack["conversation_id"])

	f.frame(t, bob, `{"type":"join_dm","conversation_id":"d1"}`)
	recvFrame(t, bob)

	f.frame(t, alice, `{"type":"dm_message","conversation_id":"d1","content":"psst"}`)

	for _, c := range []*Client{alice, bob} {
		msg := recvFrame(t, c)
		assert.Equal(t, "dm_message", msg["type"])
		assert.Equal(t, "d1", msg["conversation_id"])
		assert.Equal(t, "psst", msg["content"])
	}

	f.frame(t, bob, `{"type":"leave_dm","conversation_id":"d1"}`)
	f.frame(t, alice, `{"type":"dm_message","conversation_id":"d1","content":"still there?"}`)

	assert.Equal(t, "dm_message", recvFrame(t, alice)["type"])
	assertNoFrame(t, bob)
}

func TestDMMessageWithoutJoinDropped(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"dm_message","conversation_id":"d1","content":"psst"}`)

	assert.Empty(t, f.store.saved)
	assertNoFrame(t, alice)
}

func TestMalformedFrameRepliesErrorAndStaysUsable(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{not json`)

	reply := recvFrame(t, alice)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Invalid JSON", reply["detail"])

	// Exactly one error frame, and the connection keeps working.
	assertNoFrame(t, alice)
	f.frame(t, alice, `{"type":"join_channel","channel_id":"c1"}`)
	assert.Equal(t, "joined", recvFrame(t, alice)["type"])
}

func TestUnknownEventTypeDropped(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect(t, "alice")

	f.frame(t, alice, `{"type":"shrug","channel_id":"c1"}`)

	assertNoFrame(t, alice)
	assert.Equal(t, 0, f.rooms.RoomCount())
}

func TestGateErrorSurfacesToConnection(t *testing.T) {
	rooms := NewRooms()
	registry := NewRegistry(rooms, nil)
	store := &fakeStore{nextID: "msg-1", nextTS: time.Now()}
	directory := &fakeDirectory{names: map[string]string{"alice": "alice"}}
	gate := &fakeGate{err: errors.New("database down")}
	h := NewHandler(registry, rooms, store, directory, gate)

	alice := newTestClient("alice")
	registry.Attach("alice", alice)

	err := h.HandleFrame(context.Background(), alice, []byte(`{"type":"join_channel","channel_id":"c1"}`))
	require.Error(t, err)
	assert.Equal(t, 0, rooms.RoomCount())
}
