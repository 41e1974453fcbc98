package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn records every frame it receives.
type fakeConn struct {
	mu     sync.Mutex
	frames []any
	fail   bool
	closed bool
}

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("closed")
	}
	c.frames = append(c.frames, v)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) recorded() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestRegistryGlobalPresence(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	conn := &fakeConn{}

	assert.False(t, r.IsOnline("7"))
	r.RegisterGlobal("7", conn)
	assert.True(t, r.IsOnline("7"))

	r.Disconnect(conn)
	assert.False(t, r.IsOnline("7"))
	require.NotNil(t, r.LastSeen("7"))
}

func TestRegistryReRegisterSurvivesOldTeardown(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	old := &fakeConn{}
	fresh := &fakeConn{}

	r.RegisterGlobal("7", old)
	r.RegisterGlobal("7", fresh)

	// The old socket dying must not knock the new registration offline.
	r.Disconnect(old)
	assert.True(t, r.IsOnline("7"))

	r.Disconnect(fresh)
	assert.False(t, r.IsOnline("7"))
}

func TestRegistryRoomScope(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeConn{}
	b := &fakeConn{}

	r.JoinRoom("room-1", "7", a)
	assert.True(t, r.IsInRoom("room-1", "7"))
	// Joining a room implies global reachability.
	assert.True(t, r.IsOnline("7"))
	assert.False(t, r.IsInRoom("room-1", "12"))

	r.JoinRoom("room-1", "12", b)
	peers := r.RoomPeers("room-1")
	assert.Len(t, peers, 2)
}

func TestDisconnectNotifiesRoomPeers(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeConn{}
	b := &fakeConn{}

	r.JoinRoom("room-1", "7", a)
	r.JoinRoom("room-1", "12", b)

	r.Disconnect(a)

	assert.False(t, r.IsInRoom("room-1", "7"))
	assert.True(t, r.IsInRoom("room-1", "12"))

	frames := b.recorded()
	require.Len(t, frames, 1)
	offline, ok := frames[0].(PresenceFrame)
	require.True(t, ok)
	assert.Equal(t, EventUserOffline, offline.Type)
	assert.Equal(t, "7", offline.UserID)
	require.NotNil(t, offline.LastSeen)

	// The leaver got no frame.
	assert.Empty(t, a.recorded())
}

func TestDisconnectDropsEmptyRoom(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeConn{}

	r.JoinRoom("room-1", "7", a)
	r.Disconnect(a)

	assert.Empty(t, r.RoomPeers("room-1"))
	// Disconnecting an unknown connection is a no-op.
	r.Disconnect(&fakeConn{})
}

func TestDisconnectToleratesDeadPeerSockets(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeConn{}
	b := &fakeConn{fail: true}

	r.JoinRoom("room-1", "7", a)
	r.JoinRoom("room-1", "12", b)

	// The dead peer just logs; nothing panics or blocks.
	r.Disconnect(a)
	assert.True(t, r.IsInRoom("room-1", "12"))
}
