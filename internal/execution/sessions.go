package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event names for the interactive execution stream.
const (
	EventOutput   = "execution-output"
	EventComplete = "execution-complete"
	EventError    = "execution-error"
)

// Output stream types.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
	StreamSystem = "system"
)

// StoppedExitCode is the sentinel exit code reported when an execution
// is terminated by stop rather than running to completion.
const StoppedExitCode = -1

// Emitter delivers events back to the owning connection.
type Emitter interface {
	Emit(event string, data interface{}) error
}

// Runner executes a submission against the remote execution API.
type Runner interface {
	Run(ctx context.Context, languageID int, code, stdin string) (*Result, error)
}

type OutputEvent struct {
	ExecutionID string `json:"executionId"`
	Type        string `json:"type"`
	Output      string `json:"output"`
	Timestamp   int64  `json:"timestamp"`
}

type CompleteEvent struct {
	ExecutionID string `json:"executionId"`
	ExitCode    int    `json:"exitCode"`
	Time        string `json:"executionTime,omitempty"`
	Memory      int    `json:"memory,omitempty"`
	Terminated  bool   `json:"terminated,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

type ErrorEvent struct {
	ExecutionID string `json:"executionId,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// Session is the ephemeral state of one interactive execution.
type Session struct {
	ID        string
	RoomID    string
	UserID    uint
	Language  string
	Code      string
	StartedAt time.Time

	// Back-reference to the owning connection, used only to emit
	// stream events. It never extends the session's lifetime.
	owner Emitter
}

// SessionTable owns all interactive execution sessions. Sessions are
// created by Start, read by SendInput and removed by completion or
// Stop.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*Session
	runner   Runner
}

func NewSessionTable(runner Runner) *SessionTable {
	return &SessionTable{
		sessions: make(map[string]*Session),
		runner:   runner,
	}
}

func (t *SessionTable) get(executionID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[executionID]
	return session, ok
}

func (t *SessionTable) delete(executionID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[executionID]
	if ok {
		delete(t.sessions, executionID)
	}
	return session, ok
}

// Count reports the number of live sessions.
func (t *SessionTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Start validates the language, registers the session and launches the
// remote execution. An unsupported language creates no session and
// emits exactly one error event to the owner.
func (t *SessionTable) Start(ctx context.Context, executionID, roomID string, userID uint, language, code string, owner Emitter) {
	languageID, ok := LanguageID(language)
	if !ok {
		owner.Emit(EventError, ErrorEvent{
			ExecutionID: executionID,
			Code:        "UNSUPPORTED_LANGUAGE",
			Message:     fmt.Sprintf("Unsupported language: %s", language),
		})
		return
	}

	session := &Session{
		ID:        executionID,
		RoomID:    roomID,
		UserID:    userID,
		Language:  language,
		Code:      code,
		StartedAt: time.Now(),
		owner:     owner,
	}

	t.mu.Lock()
	t.sessions[executionID] = session
	t.mu.Unlock()

	owner.Emit(EventOutput, OutputEvent{
		ExecutionID: executionID,
		Type:        StreamSystem,
		Output:      fmt.Sprintf("Starting %s execution...\n", language),
		Timestamp:   time.Now().UnixMilli(),
	})

	go t.run(ctx, session, languageID)
}

func (t *SessionTable) run(ctx context.Context, session *Session, languageID int) {
	result, err := t.runner.Run(ctx, languageID, session.Code, "")

	// The session may have been stopped while the call was in flight;
	// in that case the result has nowhere to attach and is dropped.
	if _, ok := t.delete(session.ID); !ok {
		slog.Debug("Execution finished after session was removed", "executionID", session.ID)
		return
	}

	if err != nil {
		slog.Error("Execution failed", "executionID", session.ID, "language", session.Language, "error", err)
		session.owner.Emit(EventError, ErrorEvent{
			ExecutionID: session.ID,
			Code:        "EXECUTION_FAILED",
			Message:     "Code execution failed",
		})
		return
	}

	if result.Stdout != "" {
		session.owner.Emit(EventOutput, OutputEvent{
			ExecutionID: session.ID,
			Type:        StreamStdout,
			Output:      result.Stdout,
			Timestamp:   time.Now().UnixMilli(),
		})
	}
	if result.CompileOutput != "" {
		session.owner.Emit(EventOutput, OutputEvent{
			ExecutionID: session.ID,
			Type:        StreamStderr,
			Output:      result.CompileOutput,
			Timestamp:   time.Now().UnixMilli(),
		})
	}
	if result.Stderr != "" {
		session.owner.Emit(EventOutput, OutputEvent{
			ExecutionID: session.ID,
			Type:        StreamStderr,
			Output:      result.Stderr,
			Timestamp:   time.Now().UnixMilli(),
		})
	}

	session.owner.Emit(EventComplete, CompleteEvent{
		ExecutionID: session.ID,
		ExitCode:    result.ExitCode(),
		Time:        result.Time,
		Memory:      result.Memory,
		Timestamp:   time.Now().UnixMilli(),
	})
}

// SendInput acknowledges input for a running session.
//
// The batch execution API has no interactive stdin, so continued
// output and completion are simulated on short timers. This is a
// demo stand-in, not real streaming.
func (t *SessionTable) SendInput(executionID, input string) error {
	session, ok := t.get(executionID)
	if !ok {
		return fmt.Errorf("execution not found: %s", executionID)
	}

	session.owner.Emit(EventOutput, OutputEvent{
		ExecutionID: executionID,
		Type:        StreamStdout,
		Output:      input + "\n",
		Timestamp:   time.Now().UnixMilli(),
	})

	time.AfterFunc(500*time.Millisecond, func() {
		if _, ok := t.get(executionID); !ok {
			return
		}
		session.owner.Emit(EventOutput, OutputEvent{
			ExecutionID: executionID,
			Type:        StreamStdout,
			Output:      fmt.Sprintf("Processed input: %s\n", input),
			Timestamp:   time.Now().UnixMilli(),
		})
	})

	time.AfterFunc(1500*time.Millisecond, func() {
		if _, ok := t.delete(executionID); !ok {
			return
		}
		session.owner.Emit(EventComplete, CompleteEvent{
			ExecutionID: executionID,
			ExitCode:    0,
			Timestamp:   time.Now().UnixMilli(),
		})
	})

	return nil
}

// Stop terminates a session. Unknown ids are a silent no-op. The
// remote call, if already in flight, is not aborted; its eventual
// result is dropped when it finds no session.
func (t *SessionTable) Stop(executionID string) {
	session, ok := t.delete(executionID)
	if !ok {
		return
	}

	session.owner.Emit(EventComplete, CompleteEvent{
		ExecutionID: executionID,
		ExitCode:    StoppedExitCode,
		Terminated:  true,
		Timestamp:   time.Now().UnixMilli(),
	})
}
