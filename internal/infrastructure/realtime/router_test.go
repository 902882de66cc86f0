package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// detached connections have no socket; Send only fills the buffer.
func newTestConn(userID string) *Connection {
	return NewConnection(userID, nil)
}

func drain(c *Connection) []string {
	var out []string
	for {
		select {
		case b := <-c.send:
			out = append(out, string(b))
		default:
			return out
		}
	}
}

func TestRouter_MultipleConnectionsPerUser(t *testing.T) {
	r := NewRouter(4)
	phone, laptop := newTestConn("alice"), newTestConn("alice")

	assert.Equal(t, 1, r.Attach(phone))
	assert.Equal(t, 2, r.Attach(laptop))
	assert.Equal(t, 2, r.UserConnections("alice"))

	assert.Equal(t, 1, r.SendToUser("alice", []byte("sync"), phone.ID))
	assert.Empty(t, drain(phone))
	assert.Equal(t, []string{"sync"}, drain(laptop))

	left, ok := r.Detach(phone)
	assert.True(t, ok)
	assert.Equal(t, 1, left)

	left, ok = r.Detach(phone)
	assert.False(t, ok, "second detach is a no-op")
	assert.Equal(t, 1, left)

	left, _ = r.Detach(laptop)
	assert.Zero(t, left)
}

func TestRouter_Rooms(t *testing.T) {
	r := NewRouter(4)
	alice, bob, carol := newTestConn("alice"), newTestConn("bob"), newTestConn("carol")
	for _, c := range []*Connection{alice, bob, carol} {
		r.Attach(c)
	}
	r.Join("c1", alice)
	r.Join("c1", bob)
	r.Join("c2", alice)

	assert.Equal(t, 1, r.Broadcast("c1", []byte("hi"), alice.ID))
	assert.Equal(t, []string{"hi"}, drain(bob))
	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(carol))
	assert.Equal(t, []string{"c1", "c2"}, alice.Rooms())

	alice2 := newTestConn("alice")
	r.Attach(alice2)
	r.Join("c1", alice2)
	assert.Equal(t, 1, r.BroadcastExceptUser("c1", []byte("typing"), "alice"))
	assert.Equal(t, []string{"typing"}, drain(bob))
	assert.Empty(t, drain(alice2))
	r.Detach(alice2)

	r.Leave("c1", bob)
	assert.False(t, bob.InRoom("c1"))
	assert.Equal(t, 1, r.RoomSize("c1"))

	r.Detach(alice)
	assert.Zero(t, r.RoomSize("c1"))
	assert.Zero(t, r.RoomSize("c2"))
	assert.Empty(t, alice.Rooms())
}

func TestRouter_BroadcastAllSkipsUser(t *testing.T) {
	r := NewRouter(2)
	a1, a2, b := newTestConn("alice"), newTestConn("alice"), newTestConn("bob")
	r.Attach(a1)
	r.Attach(a2)
	r.Attach(b)

	assert.Equal(t, 1, r.BroadcastAll([]byte("alice online"), "alice"))
	assert.Equal(t, []string{"alice online"}, drain(b))
	assert.Empty(t, drain(a1))
}

func TestConnection_SlowConsumerIsClosed(t *testing.T) {
	c := newTestConn("alice")
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, c.Send([]byte("x")))
	}
	assert.ErrorIs(t, c.Send([]byte("overflow")), ErrSlowConsumer)
	assert.ErrorIs(t, c.Send([]byte("after")), ErrConnectionClosed)
	select {
	case <-c.Done():
	default:
		t.Fatal("connection should be closed")
	}
}

func TestRouter_ConcurrentAccess(t *testing.T) {
	r := NewRouter(8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newTestConn(fmt.Sprintf("user-%d", i%5))
			r.Attach(c)
			r.Join("room", c)
			r.Broadcast("room", []byte("m"), c.ID)
			r.Detach(c)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.RoomSize("room"))
	for i := 0; i < 5; i++ {
		assert.Zero(t, r.UserConnections(fmt.Sprintf("user-%d", i)))
	}
}
