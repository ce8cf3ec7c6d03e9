package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// fakeTransport satisfies transport without a network. Tests that need
// delivery assertions read the client's send buffer directly; the fake only
// has to absorb lifecycle calls.
type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	return 0, nil, websocket.ErrCloseSent
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return websocket.ErrCloseSent
	}
	return nil
}

func (f *fakeTransport) SetReadLimit(int64) {}

func (f *fakeTransport) SetReadDeadline(time.Time) error { return nil }

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) SetPongHandler(func(string) error) {}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestClient(userID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   &fakeTransport{},
		send:   make(chan []byte, sendBufferSize),
	}
}

// newDeadClient has no send capacity, so every Deliver reports dead.
func newDeadClient(userID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   &fakeTransport{},
		send:   make(chan []byte),
	}
}

// recvFrame pops one queued outbound frame, decoded into a generic map.
func recvFrame(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.send:
		var frame map[string]interface{}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("undecodable outbound frame: %v", err)
		}
		return frame
	default:
		t.Fatal("expected a queued outbound frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected outbound frame: %s", data)
	default:
	}
}
