package ws

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomsJoinLeave(t *testing.T) {
	rooms := NewRooms()

	rooms.Join("channel:c1", "alice")
	rooms.Join("channel:c1", "bob")

	assert.True(t, rooms.IsMember("channel:c1", "alice"))
	assert.True(t, rooms.IsMember("channel:c1", "bob"))
	assert.False(t, rooms.IsMember("channel:c1", "carol"))
	assert.False(t, rooms.IsMember("channel:c2", "alice"))

	rooms.Leave("channel:c1", "alice")
	assert.False(t, rooms.IsMember("channel:c1", "alice"))
	assert.True(t, rooms.IsMember("channel:c1", "bob"))
}

func TestRoomsEntryExistsIffNonEmpty(t *testing.T) {
	rooms := NewRooms()
	assert.Equal(t, 0, rooms.RoomCount())

	rooms.Join("dm:x", "alice")
	assert.Equal(t, 1, rooms.RoomCount())

	// Removing the last member deletes the room entry, never leaves an
	// empty set behind.
	rooms.Leave("dm:x", "alice")
	assert.Equal(t, 0, rooms.RoomCount())

	rooms.Join("dm:x", "alice")
	rooms.Join("dm:x", "bob")
	rooms.Leave("dm:x", "alice")
	assert.Equal(t, 1, rooms.RoomCount())
}

func TestRoomsIdempotence(t *testing.T) {
	rooms := NewRooms()

	rooms.Join("channel:c1", "alice")
	rooms.Join("channel:c1", "alice")
	assert.Equal(t, []string{"alice"}, rooms.Members("channel:c1"))

	// Leaving a room the user is not in is a no-op.
	rooms.Leave("channel:c1", "bob")
	rooms.Leave("channel:c9", "alice")
	assert.True(t, rooms.IsMember("channel:c1", "alice"))

	rooms.Leave("channel:c1", "alice")
	rooms.Leave("channel:c1", "alice")
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestRoomsEvictUser(t *testing.T) {
	rooms := NewRooms()

	rooms.Join("channel:c1", "alice")
	rooms.Join("channel:c2", "alice")
	rooms.Join("channel:c2", "bob")
	rooms.Join("dm:d1", "alice")

	rooms.EvictUser("alice")

	assert.False(t, rooms.IsMember("channel:c1", "alice"))
	assert.False(t, rooms.IsMember("channel:c2", "alice"))
	assert.False(t, rooms.IsMember("dm:d1", "alice"))
	assert.True(t, rooms.IsMember("channel:c2", "bob"))

	// Rooms that emptied are gone entirely.
	assert.Equal(t, 1, rooms.RoomCount())
}

func TestRoomsMembersSnapshot(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("channel:c1", "alice")
	rooms.Join("channel:c1", "bob")

	snapshot := rooms.Members("channel:c1")
	sort.Strings(snapshot)
	assert.Equal(t, []string{"alice", "bob"}, snapshot)

	// Mutating membership after the snapshot does not change it.
	rooms.Leave("channel:c1", "bob")
	sort.Strings(snapshot)
	assert.Equal(t, []string{"alice", "bob"}, snapshot)

	assert.Nil(t, rooms.Members("channel:missing"))
}

func TestRoomKeyNamespaces(t *testing.T) {
	// A channel and a conversation with the same raw id never share a room.
	assert.NotEqual(t, ChannelRoom("x"), DMRoom("x"))
}
