package realtime

import (
	"sort"
	"sync"
)

// Hub owns the live-connection registries: the active users map
// (user identity -> current connection, last connect wins) and the
// room membership tracker (room id -> set of connected members). All
// reads and writes go through the hub's lock; no raw references leak
// to callers.
type Hub struct {
	mu sync.RWMutex

	// activeUsers maps a user id to its current connection. A new
	// connection for the same identity overwrites the old mapping.
	activeUsers map[uint]*Client

	// roomMembers maps a room id to the members currently joined.
	// Entries are created lazily on first join and removed when the
	// set becomes empty.
	roomMembers map[string]map[uint]*Client
}

func NewHub() *Hub {
	return &Hub{
		activeUsers: make(map[uint]*Client),
		roomMembers: make(map[string]map[uint]*Client),
	}
}

func (h *Hub) addConnection(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activeUsers[client.userID] = client
}

// removeConnection drops the active-users entry only if it still
// points at this client; a newer connection for the same user must
// not be evicted.
func (h *Hub) removeConnection(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.activeUsers[client.userID]; ok && current == client {
		delete(h.activeUsers, client.userID)
	}
}

func (h *Hub) addToRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.roomMembers[roomID]
	if !ok {
		members = make(map[uint]*Client)
		h.roomMembers[roomID] = members
	}
	members[client.userID] = client
}

// removeFromRoom drops the membership entry only if it still points
// at this client; a newer connection that rejoined the room must not
// be evicted by a stale teardown.
func (h *Hub) removeFromRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.roomMembers[roomID]
	if !ok {
		return
	}
	if current, ok := members[client.userID]; !ok || current != client {
		return
	}
	delete(members, client.userID)
	if len(members) == 0 {
		delete(h.roomMembers, roomID)
	}
}

// InRoom reports whether the user is a tracked member of the room.
func (h *Hub) InRoom(roomID string, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.roomMembers[roomID][userID]
	return ok
}

// RoomMemberIDs returns the room's member ids in stable order.
func (h *Hub) RoomMemberIDs(roomID string) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uint, 0, len(h.roomMembers[roomID]))
	for id := range h.roomMembers[roomID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RoomCount reports the number of tracked rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomMembers)
}

// Connection returns the user's current connection, if any.
func (h *Hub) Connection(userID uint) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.activeUsers[userID]
	return client, ok
}

func (h *Hub) roomClients(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.roomMembers[roomID]))
	for _, client := range h.roomMembers[roomID] {
		clients = append(clients, client)
	}
	return clients
}

// BroadcastToRoom emits an event to every member of a room. A zero
// except id means no member is skipped.
func (h *Hub) BroadcastToRoom(roomID string, except uint, event string, data interface{}) {
	for _, client := range h.roomClients(roomID) {
		if except != 0 && client.userID == except {
			continue
		}
		client.Emit(event, data)
	}
}

// SendToUser delivers an event to one user's current connection. If
// the user has no live connection the event is silently dropped; the
// caller gets no delivery guarantee.
func (h *Hub) SendToUser(userID uint, event string, data interface{}) {
	client, ok := h.Connection(userID)
	if !ok {
		return
	}
	client.Emit(event, data)
}
