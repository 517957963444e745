package app

import (
	"encoding/json"
	"sync"
	"testing"

	"rental_messaging_service/internal/messaging/domain"

	"github.com/stretchr/testify/assert"
)

// fakeConn records frames written to it in place of a websocket connection
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[len(f.frames)-1]
}

func TestHub_BroadcastReachesEveryJoinedConnection(t *testing.T) {
	hub := NewConversationHub()

	connA := &fakeConn{}
	connB := &fakeConn{}
	clientA := NewClient("u1", connA)
	clientB := NewClient("u2", connB)

	hub.Join("u1_u2_p1", clientA)
	hub.Join("u1_u2_p1", clientB)
	assert.Equal(t, 2, hub.RoomSize("u1_u2_p1"))

	resp := domain.WSResponse{
		Action:  string(domain.ReceiveMessage),
		Success: true,
		Payload: map[string]interface{}{"message": "On my way"},
	}
	hub.Broadcast("u1_u2_p1", resp)

	// both connections get the frame, sender included
	assert.Equal(t, 1, connA.count())
	assert.Equal(t, 1, connB.count())

	var gotA, gotB domain.WSResponse
	assert.NoError(t, json.Unmarshal(connA.last(), &gotA))
	assert.NoError(t, json.Unmarshal(connB.last(), &gotB))
	assert.Equal(t, gotA, gotB)
	assert.Equal(t, string(domain.ReceiveMessage), gotA.Action)
}

func TestHub_BroadcastSkipsOtherRooms(t *testing.T) {
	hub := NewConversationHub()

	connA := &fakeConn{}
	connB := &fakeConn{}
	hub.Join("u1_u2", NewClient("u1", connA))
	hub.Join("u1_u3", NewClient("u3", connB))

	hub.Broadcast("u1_u2", domain.WSResponse{Action: string(domain.ReceiveMessage)})

	assert.Equal(t, 1, connA.count())
	assert.Equal(t, 0, connB.count())
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewConversationHub()

	conn := &fakeConn{}
	client := NewClient("u1", conn)
	hub.Join("u1_u2", client)
	hub.Leave("u1_u2", client)

	hub.Broadcast("u1_u2", domain.WSResponse{Action: string(domain.ReceiveMessage)})

	assert.Equal(t, 0, conn.count())
	assert.Equal(t, 0, hub.RoomSize("u1_u2"))
}

func TestHub_RemoveClientClearsAllRooms(t *testing.T) {
	hub := NewConversationHub()

	conn := &fakeConn{}
	client := NewClient("u1", conn)
	hub.Join("u1_u2", client)
	hub.Join("u1_u3", client)

	hub.RemoveClient(client)

	assert.Equal(t, 0, hub.RoomSize("u1_u2"))
	assert.Equal(t, 0, hub.RoomSize("u1_u3"))
}

func TestHub_ConcurrentJoinAndBroadcast(t *testing.T) {
	hub := NewConversationHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient("u1", &fakeConn{})
			hub.Join("u1_u2", c)
			hub.Broadcast("u1_u2", domain.WSResponse{Action: string(domain.ReceiveMessage)})
			hub.Leave("u1_u2", c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.RoomSize("u1_u2"))
}
