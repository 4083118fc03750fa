package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxActivityEntries is the hard cap on a room's persisted activity log.
// Older entries are silently trimmed.
const MaxActivityEntries = 100

type Room struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UUID        string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `gorm:"not null" json:"ownerId"`

	// Shared editor state pushed to joining connections.
	Code     string `json:"code"`
	Language string `gorm:"default:javascript" json:"language"`

	Settings RoomSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`

	WhiteboardVersion int64  `gorm:"default:0" json:"whiteboardVersion"`
	WhiteboardData    string `json:"whiteboardData"`

	ExecutionCount int64       `gorm:"default:0" json:"executionCount"`
	ActivityLog    ActivityLog `gorm:"type:jsonb" json:"activityLog"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type RoomSettings struct {
	CodeExecution   bool `gorm:"default:true" json:"codeExecution"`
	MaxParticipants int  `gorm:"default:10" json:"maxParticipants"`
	IsPublic        bool `gorm:"default:true" json:"isPublic"`
}

type RoomFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index" json:"roomId"`
	FileID    string    `gorm:"not null" json:"fileId"`
	Name      string    `gorm:"not null" json:"name"`
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	UpdatedBy uint      `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ActivityEntry struct {
	UserID    uint            `json:"userId"`
	Activity  string          `json:"activity"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ActivityLog is stored as a JSONB column.
type ActivityLog []ActivityEntry

// Append adds an entry and trims the log to the most recent
// MaxActivityEntries in arrival order.
func (l ActivityLog) Append(entry ActivityEntry) ActivityLog {
	out := append(l, entry)
	if len(out) > MaxActivityEntries {
		out = out[len(out)-MaxActivityEntries:]
	}
	return out
}

func (l ActivityLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ActivityLog) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for ActivityLog")
	}
}
