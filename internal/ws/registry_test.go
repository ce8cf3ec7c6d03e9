package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAttachDetach(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	alice1 := newTestClient("alice")
	alice2 := newTestClient("alice")

	reg.Attach("alice", alice1)
	reg.Attach("alice", alice2)
	assert.Equal(t, 2, reg.Connections("alice"))

	// Attach is idempotent for the same pair.
	reg.Attach("alice", alice1)
	assert.Equal(t, 2, reg.Connections("alice"))

	reg.Detach("alice", alice1)
	assert.True(t, reg.HasUser("alice"))

	// The entry is removed, not left empty, on the last detach.
	reg.Detach("alice", alice2)
	assert.False(t, reg.HasUser("alice"))

	// Detaching an absent connection is a no-op.
	reg.Detach("alice", alice1)
	reg.Detach("ghost", alice1)
	assert.False(t, reg.HasUser("ghost"))
}

func TestRegistryLastDetachEvictsFromRooms(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	device1 := newTestClient("alice")
	device2 := newTestClient("alice")
	reg.Attach("alice", device1)
	reg.Attach("alice", device2)

	rooms.Join("channel:c1", "alice")
	rooms.Join("dm:d1", "alice")
	rooms.Join("channel:c1", "bob")

	// One of several connections going away does not touch rooms.
	reg.Detach("alice", device1)
	assert.True(t, rooms.IsMember("channel:c1", "alice"))
	assert.True(t, rooms.IsMember("dm:d1", "alice"))

	// The last one cascades into eviction from every room.
	reg.Detach("alice", device2)
	assert.False(t, rooms.IsMember("channel:c1", "alice"))
	assert.False(t, rooms.IsMember("dm:d1", "alice"))
	assert.True(t, rooms.IsMember("channel:c1", "bob"))
}

func TestRegistrySendToUserAllDevices(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	device1 := newTestClient("alice")
	device2 := newTestClient("alice")
	reg.Attach("alice", device1)
	reg.Attach("alice", device2)

	reg.SendToUser("alice", []byte(`{"type":"message"}`))

	assert.Equal(t, "message", recvFrame(t, device1)["type"])
	assert.Equal(t, "message", recvFrame(t, device2)["type"])
}

func TestRegistrySendToUserPrunesDead(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	live := newTestClient("alice")
	dead := newDeadClient("alice")
	reg.Attach("alice", live)
	reg.Attach("alice", dead)
	rooms.Join("channel:c1", "alice")

	// The dead connection is silently dropped; delivery continues.
	reg.SendToUser("alice", []byte(`{"type":"message"}`))

	assert.Equal(t, "message", recvFrame(t, live)["type"])
	assert.Equal(t, 1, reg.Connections("alice"))
	assert.True(t, rooms.IsMember("channel:c1", "alice"))

	// Pruning the last connection runs the full detach cascade.
	reg.Detach("alice", live)
	reg.Attach("alice", dead)
	rooms.Join("channel:c1", "alice")
	reg.SendToUser("alice", []byte(`{"type":"message"}`))

	assert.False(t, reg.HasUser("alice"))
	assert.False(t, rooms.IsMember("channel:c1", "alice"))
}

func TestRegistryBroadcastToRoom(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	carol := newTestClient("carol")
	reg.Attach("alice", alice)
	reg.Attach("bob", bob)
	reg.Attach("carol", carol)

	rooms.Join("channel:c1", "alice")
	rooms.Join("channel:c1", "bob")
	// carol never joined.

	reg.BroadcastToRoom("channel:c1", []byte(`{"type":"message"}`), "")

	assert.Equal(t, "message", recvFrame(t, alice)["type"])
	assert.Equal(t, "message", recvFrame(t, bob)["type"])
	assertNoFrame(t, carol)
}

func TestRegistryBroadcastExcludesUser(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	reg.Attach("alice", alice)
	reg.Attach("bob", bob)
	rooms.Join("dm:d1", "alice")
	rooms.Join("dm:d1", "bob")

	reg.BroadcastToRoom("dm:d1", []byte(`{"type":"message"}`), "alice")

	assertNoFrame(t, alice)
	assert.Equal(t, "message", recvFrame(t, bob)["type"])
}

func TestRegistryBroadcastPerUserNotPerJoiningDevice(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	// Alice has two devices but joined the room on one only; membership is
	// per user, so both devices receive the broadcast.
	device1 := newTestClient("alice")
	device2 := newTestClient("alice")
	reg.Attach("alice", device1)
	reg.Attach("alice", device2)
	rooms.Join("channel:c1", "alice")

	reg.BroadcastToRoom("channel:c1", []byte(`{"type":"message"}`), "")

	assert.Equal(t, "message", recvFrame(t, device1)["type"])
	assert.Equal(t, "message", recvFrame(t, device2)["type"])
}

func TestRegistryConcurrentJoinLeaveBroadcast(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)

	const users = 16
	clients := make([]*Client, users)
	for i := range clients {
		userID := fmt.Sprintf("user-%d", i)
		clients[i] = newTestClient(userID)
		reg.Attach(userID, clients[i])
	}

	// Drain every client so broadcasts cannot back up into pruning.
	stop := make(chan struct{})
	for _, c := range clients {
		go func(c *Client) {
			for {
				select {
				case <-c.send:
				case <-stop:
					return
				}
			}
		}(c)
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				rooms.Join("channel:busy", userID)
				reg.BroadcastToRoom("channel:busy", []byte(`{}`), "")
				rooms.Leave("channel:busy", userID)
			}
		}()
	}
	wg.Wait()
	close(stop)

	// All transient members left; the room entry must be gone and no state
	// may be torn.
	assert.Equal(t, 0, rooms.RoomCount())
}
