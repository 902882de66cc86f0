package realtime

import (
	"hash/fnv"
	"sync"
)

// DefaultShards spreads routing state so hot rooms or users do not
// serialize unrelated traffic behind one lock.
const DefaultShards = 32

// table maps a key (user or conversation id) to its connections by id.
type table struct {
	shards []*shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]map[string]*Connection
}

func newTable(n int) *table {
	t := &table{shards: make([]*shard, n)}
	for i := range t.shards {
		t.shards[i] = &shard{m: make(map[string]map[string]*Connection)}
	}
	return t
}

func (t *table) shard(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return t.shards[h.Sum32()%uint32(len(t.shards))]
}

// add returns the number of connections under key afterwards.
func (t *table) add(key string, conn *Connection) int {
	s := t.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.m[key]
	if set == nil {
		set = make(map[string]*Connection)
		s.m[key] = set
	}
	set[conn.ID] = conn
	return len(set)
}

// remove returns the number of connections left under key and whether
// conn was present.
func (t *table) remove(key string, conn *Connection) (int, bool) {
	s := t.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.m[key]
	if _, ok := set[conn.ID]; !ok {
		return len(set), false
	}
	delete(set, conn.ID)
	if len(set) == 0 {
		delete(s.m, key)
		return 0, true
	}
	return len(set), true
}

// snapshot copies the connections under key so callers can write to them
// without holding the shard lock.
func (t *table) snapshot(key string) []*Connection {
	s := t.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.m[key]
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (t *table) count(key string) int {
	s := t.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m[key])
}

func (t *table) keys() []string {
	var out []string
	for _, s := range t.shards {
		s.mu.RLock()
		for k := range s.m {
			out = append(out, k)
		}
		s.mu.RUnlock()
	}
	return out
}

func (t *table) drain() []*Connection {
	var out []*Connection
	for _, s := range t.shards {
		s.mu.Lock()
		for _, set := range s.m {
			for _, c := range set {
				out = append(out, c)
			}
		}
		s.m = make(map[string]map[string]*Connection)
		s.mu.Unlock()
	}
	return out
}

// Router routes events to the connections held by this process: user id to
// connections, and conversation room to connections. It only routes; the
// presence store remains the record of who is online.
type Router struct {
	users *table
	rooms *table
}

// NewRouter constructs an initialized Router with n shards per table.
func NewRouter(n int) *Router {
	if n <= 0 {
		n = DefaultShards
	}
	return &Router{users: newTable(n), rooms: newTable(n)}
}

// Attach registers a connection and returns how many local connections the
// user now has.
func (r *Router) Attach(conn *Connection) int {
	return r.users.add(conn.UserID, conn)
}

// Detach removes a connection from its user and every room it joined. It
// returns the user's remaining local connections and whether conn was
// still tracked, so a second Detach is a no-op.
func (r *Router) Detach(conn *Connection) (int, bool) {
	for _, room := range conn.Rooms() {
		r.Leave(room, conn)
	}
	return r.users.remove(conn.UserID, conn)
}

// Join subscribes the connection to a conversation room.
func (r *Router) Join(conversationID string, conn *Connection) {
	r.rooms.add(conversationID, conn)
	conn.addRoom(conversationID)
}

// Leave removes the connection from the conversation room.
func (r *Router) Leave(conversationID string, conn *Connection) {
	r.rooms.remove(conversationID, conn)
	conn.removeRoom(conversationID)
}

// Broadcast writes payload to every connection in the room except
// excludeConnID and returns how many accepted it.
func (r *Router) Broadcast(conversationID string, payload []byte, excludeConnID string) int {
	return deliver(r.rooms.snapshot(conversationID), payload, excludeConnID)
}

// BroadcastExceptUser writes payload to every connection in the room not
// owned by userID.
func (r *Router) BroadcastExceptUser(conversationID string, payload []byte, userID string) int {
	delivered := 0
	for _, conn := range r.rooms.snapshot(conversationID) {
		if conn.UserID == userID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendToUser writes payload to every local connection of userID except
// excludeConnID.
func (r *Router) SendToUser(userID string, payload []byte, excludeConnID string) int {
	return deliver(r.users.snapshot(userID), payload, excludeConnID)
}

// BroadcastAll writes payload to every local connection not owned by
// excludeUserID.
func (r *Router) BroadcastAll(payload []byte, excludeUserID string) int {
	delivered := 0
	for _, userID := range r.users.keys() {
		if userID == excludeUserID {
			continue
		}
		delivered += r.SendToUser(userID, payload, "")
	}
	return delivered
}

// UserConnections returns the number of local connections of userID.
func (r *Router) UserConnections(userID string) int {
	return r.users.count(userID)
}

// RoomSize returns the number of connections subscribed to a room.
func (r *Router) RoomSize(conversationID string) int {
	return r.rooms.count(conversationID)
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.rooms.drain()
	for _, conn := range r.users.drain() {
		conn.Close(1001, "server shutdown")
	}
}

func deliver(conns []*Connection, payload []byte, excludeConnID string) int {
	delivered := 0
	for _, conn := range conns {
		if conn.ID == excludeConnID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}
