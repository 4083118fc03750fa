package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"codehub/internal/execution"
	"codehub/internal/models"
	"codehub/internal/services"
	"codehub/internal/vfs"
)

// Collaborator interfaces, declared on the consumer side so the
// coordinator can be exercised against fakes.

type RoomStore interface {
	Resolve(ctx context.Context, id string) (*models.Room, error)
	UpdateCode(ctx context.Context, roomID uint, code, language string) error
	SaveWhiteboard(ctx context.Context, roomID uint, drawData string) (int64, error)
	IncrementExecutions(ctx context.Context, roomID uint) error
	AppendActivity(ctx context.Context, roomID uint, entry models.ActivityEntry) error
	UpdateFileContent(ctx context.Context, roomID uint, fileID, content string, updatedBy uint) error
}

type SessionStore interface {
	FindActiveByRoom(ctx context.Context, roomID uint) (*models.RoomSession, error)
	AppendMessage(ctx context.Context, sessionID uint, msg models.SessionMessage) error
	UpsertParticipant(ctx context.Context, sessionID, userID uint, role string) error
	MarkParticipantLeft(ctx context.Context, sessionID, userID uint) error
	ParticipantsForRoom(ctx context.Context, roomID uint) ([]*models.SessionParticipant, error)
}

type Presence interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserInRoom(ctx context.Context, userID uint, roomUUID string) error
	SetUserOffline(ctx context.Context, userID uint) error
}

type ActivityPublisher interface {
	PublishRoomActivity(ctx context.Context, event services.RoomActivityEvent)
}

type FileSystem interface {
	Subscribe(roomID string, fn func(vfs.Event)) func()
}

// Coordinator is the single entry point for every inbound event on an
// authenticated connection. It owns the connection lifecycle, routes
// events to collaborators or to other connections in the same room,
// and converts every failure into a sender-scoped error event. An
// error never terminates the connection, and persistence failures
// never block the relay.
type Coordinator struct {
	hub        *Hub
	rooms      RoomStore
	sessions   SessionStore
	presence   Presence
	publisher  ActivityPublisher
	fs         FileSystem
	runner     execution.Runner
	executions *execution.SessionTable

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(
	hub *Hub,
	rooms RoomStore,
	sessions SessionStore,
	presence Presence,
	publisher ActivityPublisher,
	fs FileSystem,
	runner execution.Runner,
) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		hub:        hub,
		rooms:      rooms,
		sessions:   sessions,
		presence:   presence,
		publisher:  publisher,
		fs:         fs,
		runner:     runner,
		executions: execution.NewSessionTable(runner),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (c *Coordinator) Hub() *Hub { return c.hub }

func (c *Coordinator) Stop() {
	c.cancel()
}

// opCtx bounds one persistence operation.
func (c *Coordinator) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, 5*time.Second)
}

// bestEffort logs and discards a persistence error. The realtime
// relay is the primary guarantee; persistence is advisory.
func (c *Coordinator) bestEffort(op string, err error) {
	if err != nil {
		slog.Error("Best-effort operation failed", "op", op, "error", err)
	}
}

// Register installs a new authenticated connection in the active
// users map and marks the user online.
func (c *Coordinator) Register(client *Client) {
	c.hub.addConnection(client)

	ctx, cancel := c.opCtx()
	defer cancel()
	c.bestEffort("set user online", c.presence.SetUserOnline(ctx, client.userID))
}

// HandleEvent dispatches one inbound event. No failure escapes the
// handler boundary: panics are recovered and reported to the sender
// only.
func (c *Coordinator) HandleEvent(client *Client, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panic", "event", event.Type, "userID", client.userID, "panic", r)
			client.sendError(CodeInvalidMessage, "Internal error handling event")
		}
	}()

	switch event.Type {
	case EventJoinRoom:
		c.handleJoinRoom(client, event.Data)
	case EventLeaveRoom:
		c.handleLeaveRoom(client)
	case EventCodeChange:
		c.handleCodeChange(client, event.Data)
	case EventExecuteCode:
		c.handleExecuteCode(client, event.Data)
	case EventChatMessage:
		c.handleChatMessage(client, event.Data)
	case EventWhiteboardDraw:
		c.handleWhiteboardDraw(client, event.Data)
	case EventWhiteboardClear:
		c.handleWhiteboardClear(client)
	case EventWhiteboardSyncReq:
		c.handleWhiteboardSyncRequest(client)
	case EventVideoOffer, EventVideoAnswer, EventICECandidate:
		c.relayToUser(client, event)
	case EventFileContentChanged:
		c.handleFileContentChanged(client, event.Data)
	case EventUserActivity:
		c.handleUserActivity(client, event.Data)
	case EventSubscribeToFS:
		c.handleSubscribeToFS(client, event.Data)
	case EventUnsubscribeFromFS:
		client.releaseFSSubscription()
	case EventStartInteractive:
		c.handleStartInteractive(client, event.Data)
	case EventSendInput:
		c.handleSendInput(client, event.Data)
	case EventStopExecution:
		c.handleStopExecution(client, event.Data)
	case EventCursorPosition, EventTypingStart, EventTypingStop,
		EventScreenShareStart, EventScreenShareStop,
		EventActiveFileChanged, EventFileTreeUpdated,
		EventLanguageChanged, EventCodeExecResult:
		c.relayToRoom(client, event)
	default:
		slog.Debug("Unknown event type", "event", event.Type, "userID", client.userID)
		client.sendError(CodeInvalidMessage, "Unknown event type: "+event.Type)
	}
}

// HandleDisconnect tears the connection down symmetrically: active
// users map, filesystem subscription, presence, and room membership,
// notifying the remaining members.
func (c *Coordinator) HandleDisconnect(client *Client) {
	c.hub.removeConnection(client)
	client.releaseFSSubscription()

	roomID := client.RoomID()
	if roomID != "" {
		c.hub.removeFromRoom(roomID, client)
		client.setRoomID("")
	}

	// A newer connection for the same user supersedes this one; the
	// stale teardown must not flip the live connection's presence or
	// announce a disconnect that did not happen.
	if _, ok := c.hub.Connection(client.userID); ok {
		return
	}

	ctx, cancel := c.opCtx()
	defer cancel()
	c.bestEffort("set user offline", c.presence.SetUserOffline(ctx, client.userID))

	if roomID == "" {
		return
	}

	room, err := c.rooms.Resolve(ctx, roomID)
	if err != nil {
		slog.Error("Failed to resolve room on disconnect", "roomID", roomID, "error", err)
	} else {
		if session, serr := c.sessions.FindActiveByRoom(ctx, room.ID); serr == nil {
			c.bestEffort("mark participant left", c.sessions.MarkParticipantLeft(ctx, session.ID, client.userID))
		}
		c.hub.BroadcastToRoom(roomID, 0, EventParticipantsUpdated, c.participantList(ctx, room, 0))
	}

	c.hub.BroadcastToRoom(roomID, 0, EventUserDisconnected, UserLeftPayload{
		UserID:    client.userID,
		Username:  client.username,
		Timestamp: time.Now().UnixMilli(),
	})

	slog.Info("Client disconnected", "clientID", client.id, "userID", client.userID, "roomID", roomID)
}

func (c *Coordinator) handleJoinRoom(client *Client, raw []byte) {
	roomID, ok := parseRoomID(raw)
	if !ok {
		client.sendError(CodeInvalidMessage, "roomId is required")
		return
	}

	ctx, cancel := c.opCtx()
	defer cancel()

	room, err := c.rooms.Resolve(ctx, roomID)
	if err != nil {
		client.sendError(CodeRoomNotFound, "Room not found")
		return
	}

	// A user joins at most one room per connection; joining a new
	// room implicitly leaves the previous one.
	if prev := client.RoomID(); prev != "" && prev != room.UUID {
		c.leaveRoom(client, prev)
	}

	client.setRoomID(room.UUID)
	c.hub.addToRoom(room.UUID, client)

	c.hub.BroadcastToRoom(room.UUID, client.userID, EventUserJoined, UserJoinedPayload{
		UserID:    client.userID,
		Username:  client.username,
		Avatar:    client.avatar,
		Timestamp: time.Now().UnixMilli(),
	})

	role := "participant"
	if room.OwnerID == client.userID {
		role = "host"
	}
	if session, serr := c.sessions.FindActiveByRoom(ctx, room.ID); serr == nil {
		c.bestEffort("upsert participant", c.sessions.UpsertParticipant(ctx, session.ID, client.userID, role))
	}

	participants := c.participantList(ctx, room, client.userID)
	c.hub.BroadcastToRoom(room.UUID, client.userID, EventParticipantsUpdated, participants)

	client.Emit(EventRoomParticipants, participants)
	client.Emit(EventCodeSync, CodeSyncPayload{Code: room.Code, Language: room.Language})

	c.bestEffort("set user in room", c.presence.SetUserInRoom(ctx, client.userID, room.UUID))

	slog.Info("User joined room", "userID", client.userID, "roomID", room.UUID)
}

func (c *Coordinator) handleLeaveRoom(client *Client) {
	roomID := client.RoomID()
	if roomID == "" {
		return
	}
	c.leaveRoom(client, roomID)

	ctx, cancel := c.opCtx()
	defer cancel()
	c.bestEffort("set user online", c.presence.SetUserOnline(ctx, client.userID))
}

func (c *Coordinator) leaveRoom(client *Client, roomID string) {
	c.hub.removeFromRoom(roomID, client)
	client.setRoomID("")

	ctx, cancel := c.opCtx()
	defer cancel()

	room, err := c.rooms.Resolve(ctx, roomID)
	if err == nil {
		if session, serr := c.sessions.FindActiveByRoom(ctx, room.ID); serr == nil {
			c.bestEffort("mark participant left", c.sessions.MarkParticipantLeft(ctx, session.ID, client.userID))
		}
		c.hub.BroadcastToRoom(roomID, 0, EventParticipantsUpdated, c.participantList(ctx, room, 0))
	} else {
		slog.Error("Failed to resolve room on leave", "roomID", roomID, "error", err)
	}

	c.hub.BroadcastToRoom(roomID, 0, EventUserLeft, UserLeftPayload{
		UserID:    client.userID,
		Username:  client.username,
		Timestamp: time.Now().UnixMilli(),
	})
}

// participantList cross-references the room's persisted participant
// records with the live membership set. A connected user without a
// persisted record is included only when they are the joining user,
// with a minimal synthesized entry.
func (c *Coordinator) participantList(ctx context.Context, room *models.Room, joinerID uint) []Participant {
	byUser := make(map[uint]*models.SessionParticipant)
	records, err := c.sessions.ParticipantsForRoom(ctx, room.ID)
	if err != nil {
		slog.Error("Failed to load participants", "roomID", room.ID, "error", err)
	}
	for _, record := range records {
		byUser[record.UserID] = record
	}

	participants := make([]Participant, 0)
	for _, userID := range c.hub.RoomMemberIDs(room.UUID) {
		member, ok := c.hub.Connection(userID)
		if !ok {
			continue
		}
		record, hasRecord := byUser[userID]
		if !hasRecord && userID != joinerID {
			continue
		}

		role := "participant"
		if hasRecord {
			role = record.Role
		} else if room.OwnerID == userID {
			role = "host"
		}

		participants = append(participants, Participant{
			UserID:   userID,
			Username: member.username,
			Avatar:   member.avatar,
			Role:     role,
			IsActive: true,
		})
	}
	return participants
}

// parseRoomID accepts both a bare string payload and an object with a
// roomId field.
func parseRoomID(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	var data JoinRoomData
	if err := json.Unmarshal(raw, &data); err == nil && data.RoomID != "" {
		return data.RoomID, true
	}
	return "", false
}
