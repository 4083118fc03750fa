package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"codehub/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var ErrClientDisconnected = errors.New("client disconnected")

// Client is one live connection belonging to one authenticated user.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	username string
	avatar   string

	mu            sync.Mutex
	currentRoomID string
	fsUnsubscribe func()

	ctx    chan struct{}
	closed int32

	// sendMu serializes queueing in Emit against closing the send
	// channel, so a concurrent Emit can never send mid-close.
	sendMu     sync.Mutex
	sendClosed int32

	wg sync.WaitGroup
}

func NewClient(conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		id:       uuid.New().String(),
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   user.ID,
		username: user.Username,
		avatar:   user.Avatar,
		ctx:      make(chan struct{}),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) UserID() uint     { return c.userID }
func (c *Client) Username() string { return c.username }
func (c *Client) Avatar() string   { return c.avatar }

func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRoomID
}

func (c *Client) setRoomID(roomID string) {
	c.mu.Lock()
	c.currentRoomID = roomID
	c.mu.Unlock()
}

// setFSUnsubscribe installs a new filesystem subscription handle,
// releasing any existing one first. Exactly one slot per connection.
func (c *Client) setFSUnsubscribe(unsubscribe func()) {
	c.mu.Lock()
	prev := c.fsUnsubscribe
	c.fsUnsubscribe = unsubscribe
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (c *Client) releaseFSSubscription() {
	c.setFSUnsubscribe(nil)
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.ctx)
	}
}

func (c *Client) closeSendChannel() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// Emit marshals and queues one named event for this connection.
func (c *Client) Emit(event string, data interface{}) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if atomic.LoadInt32(&c.sendClosed) == 1 {
		return ErrClientDisconnected
	}

	select {
	case c.send <- raw:
		return nil
	case <-c.ctx:
		return ErrClientDisconnected
	default:
		// Send buffer is full, drop the connection
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		atomic.StoreInt32(&c.sendClosed, 1)
		close(c.send)
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(code, message string) {
	c.Emit(EventError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) readPump(coordinator *Coordinator) {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()
		coordinator.HandleDisconnect(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			slog.Debug("Failed to unmarshal event", "clientID", c.id, "error", err)
			c.sendError(CodeInvalidMessage, "Invalid message format")
			continue
		}

		coordinator.HandleEvent(c, &event)
	}
}

func (c *Client) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an authenticated request and hands the connection
// to the coordinator.
func ServeWS(coordinator *Coordinator, w http.ResponseWriter, r *http.Request, user *models.User) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", user.ID, "error", err)
		return
	}

	client := NewClient(conn, user)
	slog.Info("New WebSocket connection", "clientID", client.id, "userID", client.userID)

	coordinator.Register(client)

	go client.writePump()
	go client.readPump(coordinator)
}
