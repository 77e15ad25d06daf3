package websocket

import (
	"context"
	"encoding/json"
	"sync"
)

// Hub fans file events out to every open connection of a user.
type Hub struct {
	mu sync.RWMutex

	// users maps a user id to that user's live connections.
	users map[int64]map[*Client]struct{}

	// membership carries registrations and removals in arrival order, so a
	// removal can never overtake the registration it cancels.
	membership chan membershipChange
}

type membershipChange struct {
	client *Client
	add    bool
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[int64]map[*Client]struct{}),
		membership: make(chan membershipChange, 512),
	}
}

// Run applies registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-h.membership:
			if change.add {
				h.addClient(change.client)
			} else {
				h.removeClient(change.client)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.membership <- membershipChange{client: client, add: true}
}

func (h *Hub) Unregister(client *Client) {
	h.membership <- membershipChange{client: client}
}

// BroadcastToUser queues payload on each of the user's connections and
// returns how many accepted it.
func (h *Hub) BroadcastToUser(userID int64, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.users[userID] {
		if c.SendMessage(payload) {
			sent++
		}
	}
	return sent
}

// PublishToUser delivers v in-process. It stands in for the Redis publisher
// when the service runs as a single instance.
func (h *Hub) PublishToUser(_ context.Context, userID int64, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.BroadcastToUser(userID, payload)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.users {
		n += len(clients)
	}
	return n
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.users[client.UserID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.users[client.UserID] = clients
	}
	clients[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.users, client.UserID)
	}
	close(client.Send)
}
