package realtime

import (
	"encoding/json"
)

// Event is the wire format for every message on a connection, both
// directions: a named type plus an opaque payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventCodeChange         = "code-change"
	EventExecuteCode        = "execute-code"
	EventCursorPosition     = "cursor-position"
	EventTypingStart        = "typing-start"
	EventTypingStop         = "typing-stop"
	EventChatMessage        = "chat-message"
	EventWhiteboardDraw     = "whiteboard-draw"
	EventWhiteboardClear    = "whiteboard-clear"
	EventWhiteboardSyncReq  = "whiteboard-sync-request"
	EventVideoOffer         = "video-offer"
	EventVideoAnswer        = "video-answer"
	EventICECandidate       = "ice-candidate"
	EventScreenShareStart   = "screen-share-start"
	EventScreenShareStop    = "screen-share-stop"
	EventStartInteractive   = "start-interactive-execution"
	EventSendInput          = "send-execution-input"
	EventStopExecution      = "stop-execution"
	EventSubscribeToFS      = "subscribe-to-file-system"
	EventUnsubscribeFromFS  = "unsubscribe-from-file-system"
	EventFileContentChanged = "file-content-changed"
	EventActiveFileChanged  = "active-file-changed"
	EventFileTreeUpdated    = "file-tree-updated"
	EventLanguageChanged    = "language-changed"
	EventCodeExecResult     = "code-execution-result"
	EventUserActivity       = "user-activity"
)

// Outbound event names.
const (
	EventError               = "error"
	EventRoomParticipants    = "room-participants"
	EventParticipantsUpdated = "room-participants-updated"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventUserDisconnected    = "user-disconnected"
	EventCodeSync            = "code-sync"
	EventCodeUpdate          = "code-update"
	EventExecutionStarted    = "execution-started"
	EventExecutionResult     = "execution-result"
	EventExecutionError      = "execution-error"
	EventNewMessage          = "new-message"
	EventWhiteboardUpdate    = "whiteboard-update"
	EventWhiteboardCleared   = "whiteboard-cleared"
	EventWhiteboardSync      = "whiteboard-sync"
	EventVirtualFS           = "virtual-fs-event"
)

// Error codes carried by sender-scoped error events.
const (
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeExecutionNotAllowed = "EXECUTION_NOT_ALLOWED"
	CodeInvalidMessage      = "INVALID_MESSAGE"
	CodeExecutionNotFound   = "EXECUTION_NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Participant is one entry of the active-participant list sent on
// join and membership changes.
type Participant struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type UserJoinedPayload struct {
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Timestamp int64  `json:"timestamp"`
}

type UserLeftPayload struct {
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

type CodeSyncPayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type CodeChangeData struct {
	RoomID    string          `json:"roomId"`
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	Cursor    json.RawMessage `json:"cursor,omitempty"`
	Operation json.RawMessage `json:"operation,omitempty"`
}

type CodeUpdatePayload struct {
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	Cursor    json.RawMessage `json:"cursor,omitempty"`
	Operation json.RawMessage `json:"operation,omitempty"`
	UserID    uint            `json:"userId"`
	Username  string          `json:"username"`
	Timestamp int64           `json:"timestamp"`
}

type ExecuteCodeData struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input,omitempty"`
}

type ExecutionStartedPayload struct {
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	Language  string `json:"language"`
	Timestamp int64  `json:"timestamp"`
}

type ExecutionResultPayload struct {
	UserID        uint   `json:"userId"`
	Username      string `json:"username"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	CompileOutput string `json:"compileOutput,omitempty"`
	Status        string `json:"status"`
	ExitCode      int    `json:"exitCode"`
	Time          string `json:"executionTime,omitempty"`
	Memory        int    `json:"memory,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

type ChatMessageData struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type NewMessagePayload struct {
	ID        string `json:"id"`
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type WhiteboardDrawData struct {
	RoomID   string          `json:"roomId"`
	DrawData json.RawMessage `json:"drawData"`
}

type WhiteboardUpdatePayload struct {
	DrawData json.RawMessage `json:"drawData"`
	Version  int64           `json:"version"`
	UserID   uint            `json:"userId"`
}

type WhiteboardClearedPayload struct {
	UserID  uint  `json:"userId"`
	Version int64 `json:"version"`
}

type WhiteboardSyncPayload struct {
	DrawData json.RawMessage `json:"drawData"`
	Version  int64           `json:"version"`
}

type FileContentChangedData struct {
	RoomID  string `json:"roomId"`
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

type UserActivityData struct {
	RoomID   string          `json:"roomId"`
	Activity string          `json:"activity"`
	Data     json.RawMessage `json:"data,omitempty"`
}

type SubscribeFSData struct {
	RoomID string `json:"roomId"`
}

type VirtualFSPayload struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type StartInteractiveData struct {
	ExecutionID string `json:"executionId"`
	RoomID      string `json:"roomId"`
	Language    string `json:"language"`
	Code        string `json:"code"`
}

type SendInputData struct {
	ExecutionID string `json:"executionId"`
	Input       string `json:"input"`
}

type StopExecutionData struct {
	ExecutionID string `json:"executionId"`
}
