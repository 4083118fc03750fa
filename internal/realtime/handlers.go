package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"codehub/internal/execution"
	"codehub/internal/models"
	"codehub/internal/services"
	"codehub/internal/vfs"

	"github.com/google/uuid"
)

func (c *Coordinator) handleCodeChange(client *Client, raw []byte) {
	var data CodeChangeData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid code-change payload")
		return
	}

	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	// Best-effort persist; a failed write never blocks the broadcast.
	ctx, cancel := c.opCtx()
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	switch {
	case err != nil:
		slog.Error("Failed to resolve room for code change", "roomID", data.RoomID, "error", err)
	case room.UUID != roomID:
		// Persistence-bearing events only write into the sender's
		// current room; a mismatched roomId is dropped outright.
		cancel()
		slog.Debug("Code change dropped, sender not in room", "roomID", room.UUID, "userID", client.userID)
		return
	default:
		c.bestEffort("persist code change", c.rooms.UpdateCode(ctx, room.ID, data.Code, data.Language))
	}
	cancel()

	// The operation field is opaque and forwarded as-is: concurrent
	// edits are last-write-wins at the persistence layer and
	// order-of-arrival at the broadcast layer.
	c.hub.BroadcastToRoom(roomID, client.userID, EventCodeUpdate, CodeUpdatePayload{
		Code:      data.Code,
		Language:  data.Language,
		Cursor:    data.Cursor,
		Operation: data.Operation,
		UserID:    client.userID,
		Username:  client.username,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Coordinator) handleExecuteCode(client *Client, raw []byte) {
	var data ExecuteCodeData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid execute-code payload")
		return
	}

	ctx, cancel := c.opCtx()
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	cancel()
	if err != nil {
		client.sendError(CodeRoomNotFound, "Room not found")
		return
	}

	if !room.Settings.CodeExecution {
		client.Emit(EventExecutionError, ErrorPayload{
			Code:    CodeExecutionNotAllowed,
			Message: "Code execution not allowed in this room",
		})
		return
	}

	languageID, ok := execution.LanguageID(data.Language)
	if !ok {
		client.Emit(EventExecutionError, ErrorPayload{
			Code:    "UNSUPPORTED_LANGUAGE",
			Message: fmt.Sprintf("Unsupported language: %s", data.Language),
		})
		return
	}

	client.Emit(EventExecutionStarted, ExecutionStartedPayload{
		UserID:    client.userID,
		Username:  client.username,
		Language:  data.Language,
		Timestamp: time.Now().UnixMilli(),
	})

	go func() {
		result, err := c.runner.Run(c.ctx, languageID, data.Code, data.Input)
		if err != nil {
			slog.Error("Code execution failed", "roomID", room.UUID, "userID", client.userID, "error", err)
			client.Emit(EventExecutionError, ErrorPayload{
				Code:    "EXECUTION_FAILED",
				Message: "Code execution failed",
			})
			return
		}

		c.hub.BroadcastToRoom(room.UUID, 0, EventExecutionResult, ExecutionResultPayload{
			UserID:        client.userID,
			Username:      client.username,
			Stdout:        result.Stdout,
			Stderr:        result.Stderr,
			CompileOutput: result.CompileOutput,
			Status:        result.StatusDescription,
			ExitCode:      result.ExitCode(),
			Time:          result.Time,
			Memory:        result.Memory,
			Timestamp:     time.Now().UnixMilli(),
		})

		ctx, cancel := c.opCtx()
		defer cancel()
		c.bestEffort("increment executions", c.rooms.IncrementExecutions(ctx, room.ID))
	}()
}

func (c *Coordinator) handleChatMessage(client *Client, raw []byte) {
	var data ChatMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid chat-message payload")
		return
	}

	ctx, cancel := c.opCtx()
	defer cancel()

	room, err := c.rooms.Resolve(ctx, data.RoomID)
	if err != nil {
		client.sendError(CodeRoomNotFound, "Room not found")
		return
	}
	if !c.hub.InRoom(room.UUID, client.userID) {
		slog.Debug("Chat from non-member dropped", "roomID", room.UUID, "userID", client.userID)
		return
	}

	msgType := data.Type
	if msgType == "" {
		msgType = "text"
	}
	now := time.Now()

	// Unique within one process instance, which is all the client
	// needs for dedup.
	msgID := fmt.Sprintf("%d-%d-%s", client.userID, now.UnixMilli(), uuid.NewString()[:8])

	// Persist into the active session's chat log when there is one;
	// a room without an active session still gets the broadcast.
	if session, serr := c.sessions.FindActiveByRoom(ctx, room.ID); serr == nil {
		c.bestEffort("append chat message", c.sessions.AppendMessage(ctx, session.ID, models.SessionMessage{
			ID:        msgID,
			UserID:    client.userID,
			Username:  client.username,
			Message:   data.Message,
			Type:      msgType,
			Timestamp: now,
		}))
	}

	c.hub.BroadcastToRoom(room.UUID, 0, EventNewMessage, NewMessagePayload{
		ID:        msgID,
		UserID:    client.userID,
		Username:  client.username,
		Avatar:    client.avatar,
		Message:   data.Message,
		Type:      msgType,
		Timestamp: now.UnixMilli(),
	})
}

func (c *Coordinator) handleWhiteboardDraw(client *Client, raw []byte) {
	var data WhiteboardDrawData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid whiteboard-draw payload")
		return
	}

	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	ctx, cancel := c.opCtx()
	var version int64
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	switch {
	case err != nil:
		slog.Error("Failed to resolve room for whiteboard draw", "roomID", data.RoomID, "error", err)
	case room.UUID != roomID:
		cancel()
		slog.Debug("Whiteboard draw dropped, sender not in room", "roomID", room.UUID, "userID", client.userID)
		return
	default:
		version, err = c.rooms.SaveWhiteboard(ctx, room.ID, string(data.DrawData))
		if err != nil {
			c.bestEffort("persist whiteboard", err)
			version = room.WhiteboardVersion + 1
		}
	}
	cancel()

	c.hub.BroadcastToRoom(roomID, client.userID, EventWhiteboardUpdate, WhiteboardUpdatePayload{
		DrawData: data.DrawData,
		Version:  version,
		UserID:   client.userID,
	})
}

func (c *Coordinator) handleWhiteboardClear(client *Client) {
	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	ctx, cancel := c.opCtx()
	var version int64
	if room, err := c.rooms.Resolve(ctx, roomID); err == nil {
		version, err = c.rooms.SaveWhiteboard(ctx, room.ID, "")
		if err != nil {
			c.bestEffort("persist whiteboard clear", err)
			version = room.WhiteboardVersion + 1
		}
	}
	cancel()

	c.hub.BroadcastToRoom(roomID, client.userID, EventWhiteboardCleared, WhiteboardClearedPayload{
		UserID:  client.userID,
		Version: version,
	})
}

func (c *Coordinator) handleWhiteboardSyncRequest(client *Client) {
	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	ctx, cancel := c.opCtx()
	defer cancel()

	room, err := c.rooms.Resolve(ctx, roomID)
	if err != nil || room.WhiteboardData == "" {
		// Nothing persisted yet; sync request is a no-op.
		return
	}

	client.Emit(EventWhiteboardSync, WhiteboardSyncPayload{
		DrawData: json.RawMessage(room.WhiteboardData),
		Version:  room.WhiteboardVersion,
	})
}

// relayToUser implements the peer signaling relay: a pure directed
// forward to the target user's current connection with sender
// attribution attached. An offline target means the event is silently
// dropped.
func (c *Coordinator) relayToUser(client *Client, event *Event) {
	var data map[string]interface{}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid signaling payload")
		return
	}

	target, ok := data["to"].(float64)
	if !ok {
		client.sendError(CodeInvalidMessage, "Signaling target is required")
		return
	}

	data["from"] = client.userID
	data["fromUsername"] = client.username
	c.hub.SendToUser(uint(target), event.Type, data)
}

func (c *Coordinator) handleFileContentChanged(client *Client, raw []byte) {
	var data FileContentChangedData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid file-content-changed payload")
		return
	}

	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	ctx, cancel := c.opCtx()
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	switch {
	case err != nil:
		slog.Error("Failed to resolve room for file change", "roomID", data.RoomID, "error", err)
	case room.UUID != roomID:
		cancel()
		slog.Debug("File change dropped, sender not in room", "roomID", room.UUID, "userID", client.userID)
		return
	default:
		c.bestEffort("persist file content",
			c.rooms.UpdateFileContent(ctx, room.ID, data.FileID, data.Content, client.userID))
	}
	cancel()

	c.hub.BroadcastToRoom(roomID, client.userID, EventFileContentChanged, map[string]interface{}{
		"fileId":    data.FileID,
		"content":   data.Content,
		"userId":    client.userID,
		"username":  client.username,
		"timestamp": time.Now().UnixMilli(),
	})
}

func (c *Coordinator) handleUserActivity(client *Client, raw []byte) {
	var data UserActivityData
	if err := json.Unmarshal(raw, &data); err != nil {
		client.sendError(CodeInvalidMessage, "Invalid user-activity payload")
		return
	}

	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	now := time.Now()
	ctx, cancel := c.opCtx()
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	switch {
	case err != nil:
		slog.Error("Failed to resolve room for activity", "roomID", data.RoomID, "error", err)
	case room.UUID != roomID:
		cancel()
		slog.Debug("Activity dropped, sender not in room", "roomID", room.UUID, "userID", client.userID)
		return
	default:
		c.bestEffort("append activity", c.rooms.AppendActivity(ctx, room.ID, models.ActivityEntry{
			UserID:    client.userID,
			Activity:  data.Activity,
			Data:      data.Data,
			Timestamp: now,
		}))
		if c.publisher != nil {
			c.publisher.PublishRoomActivity(ctx, services.RoomActivityEvent{
				RoomID:    room.ID,
				UserID:    client.userID,
				Activity:  data.Activity,
				Data:      data.Data,
				Timestamp: now,
			})
		}
	}
	cancel()

	c.hub.BroadcastToRoom(roomID, client.userID, EventUserActivity, map[string]interface{}{
		"userId":    client.userID,
		"username":  client.username,
		"activity":  data.Activity,
		"data":      data.Data,
		"timestamp": now.UnixMilli(),
	})
}

func (c *Coordinator) handleSubscribeToFS(client *Client, raw []byte) {
	roomID, ok := parseRoomID(raw)
	if !ok {
		client.sendError(CodeInvalidMessage, "roomId is required")
		return
	}
	if !c.hub.InRoom(roomID, client.userID) {
		client.sendError(CodeForbidden, "Not a member of this room")
		return
	}

	unsubscribe := c.fs.Subscribe(roomID, func(event vfs.Event) {
		client.Emit(EventVirtualFS, VirtualFSPayload{
			Event:     event.Event,
			Data:      event,
			Timestamp: event.Timestamp.UnixMilli(),
		})
	})

	// Installing releases any previous subscription so a repeated
	// subscribe cannot leak the old one.
	client.setFSUnsubscribe(unsubscribe)
}

func (c *Coordinator) handleStartInteractive(client *Client, raw []byte) {
	var data StartInteractiveData
	if err := json.Unmarshal(raw, &data); err != nil || data.ExecutionID == "" {
		client.sendError(CodeInvalidMessage, "Invalid execution payload")
		return
	}

	ctx, cancel := c.opCtx()
	room, err := c.rooms.Resolve(ctx, data.RoomID)
	cancel()
	if err != nil {
		client.sendError(CodeRoomNotFound, "Room not found")
		return
	}
	if !room.Settings.CodeExecution {
		client.Emit(EventExecutionError, ErrorPayload{
			Code:    CodeExecutionNotAllowed,
			Message: "Code execution not allowed in this room",
		})
		return
	}

	c.executions.Start(c.ctx, data.ExecutionID, room.UUID, client.userID, data.Language, data.Code, client)
}

func (c *Coordinator) handleSendInput(client *Client, raw []byte) {
	var data SendInputData
	if err := json.Unmarshal(raw, &data); err != nil || data.ExecutionID == "" {
		client.sendError(CodeInvalidMessage, "Invalid input payload")
		return
	}

	if err := c.executions.SendInput(data.ExecutionID, data.Input); err != nil {
		client.sendError(CodeExecutionNotFound, "Execution not found")
	}
}

func (c *Coordinator) handleStopExecution(client *Client, raw []byte) {
	var data StopExecutionData
	if err := json.Unmarshal(raw, &data); err != nil || data.ExecutionID == "" {
		client.sendError(CodeInvalidMessage, "Invalid stop payload")
		return
	}
	c.executions.Stop(data.ExecutionID)
}

// relayToRoom forwards a room-scoped event to the other members of
// the sender's current room with sender attribution attached. A
// sender with no current room is silently dropped.
func (c *Coordinator) relayToRoom(client *Client, event *Event) {
	roomID := client.RoomID()
	if roomID == "" {
		return
	}

	data := make(map[string]interface{})
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			client.sendError(CodeInvalidMessage, "Invalid payload for "+event.Type)
			return
		}
	}

	data["userId"] = client.userID
	data["username"] = client.username
	data["timestamp"] = time.Now().UnixMilli()

	c.hub.BroadcastToRoom(roomID, client.userID, event.Type, data)
}
