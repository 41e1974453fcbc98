package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is one live connection. Implementations must make Send safe to call
// from any goroutine and return an error instead of blocking when the peer
// cannot keep up.
type Conn interface {
	Send(v any) error
	Close()
}

// Registry is the single authority on live reachability, at global scope
// (one connection per user, last registration wins) and room scope (who has
// which conversation open). All maps sit behind one mutex because each
// websocket runs its own read goroutine.
type Registry struct {
	mu       sync.RWMutex
	global   map[string]Conn            // userID -> connection
	rooms    map[string]map[string]Conn // roomID -> userID -> connection
	owners   map[Conn]string            // reverse lookup for Disconnect
	lastSeen map[string]time.Time
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		global:   make(map[string]Conn),
		rooms:    make(map[string]map[string]Conn),
		owners:   make(map[Conn]string),
		lastSeen: make(map[string]time.Time),
		logger:   logger,
	}
}

// RegisterGlobal records the user's live connection. A second login simply
// overwrites the first; there is no rejection.
func (r *Registry) RegisterGlobal(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[userID] = conn
	r.owners[conn] = userID
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.global[userID]
	return ok
}

// JoinRoom marks the user reachable inside roomID. Joining implies global
// reachability, so a missing global entry is filled in as well.
func (r *Registry) JoinRoom(roomID, userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers, ok := r.rooms[roomID]
	if !ok {
		peers = make(map[string]Conn)
		r.rooms[roomID] = peers
	}
	peers[userID] = conn
	if _, ok := r.global[userID]; !ok {
		r.global[userID] = conn
	}
	r.owners[conn] = userID
}

func (r *Registry) IsInRoom(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.rooms[roomID][userID]
	return ok && conn != nil
}

// RoomPeers returns a copy of the room's live occupants.
func (r *Registry) RoomPeers(roomID string) map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := make(map[string]Conn, len(r.rooms[roomID]))
	for uid, conn := range r.rooms[roomID] {
		peers[uid] = conn
	}
	return peers
}

func (r *Registry) GlobalConn(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.global[userID]
	return conn, ok
}

func (r *Registry) LastSeen(userID string) *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ts, ok := r.lastSeen[userID]; ok {
		t := ts
		return &t
	}
	return nil
}

// Disconnect removes the connection everywhere it is registered, stamps
// lastSeen, and tells the remaining occupants of every affected room the
// user went offline. Sends to dying sockets are logged, never raised.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	userID, ok := r.owners[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.owners, conn)

	// Only drop the global entry if it still points at this connection; a
	// newer registration must survive the old socket's teardown.
	if cur, ok := r.global[userID]; ok && cur == conn {
		delete(r.global, userID)
	}

	now := time.Now()
	r.lastSeen[userID] = now

	type peerSend struct {
		uid  string
		conn Conn
	}
	var notify []peerSend
	for roomID, peers := range r.rooms {
		if cur, ok := peers[userID]; !ok || cur != conn {
			continue
		}
		delete(peers, userID)
		if len(peers) == 0 {
			delete(r.rooms, roomID)
			continue
		}
		for uid, peer := range peers {
			notify = append(notify, peerSend{uid: uid, conn: peer})
		}
	}
	r.mu.Unlock()

	frame := PresenceFrame{Type: EventUserOffline, UserID: userID, LastSeen: &now}
	for _, p := range notify {
		if err := p.conn.Send(frame); err != nil {
			r.logger.Warn("offline notice dropped",
				zap.String("peer", p.uid), zap.Error(err))
		}
	}
}
