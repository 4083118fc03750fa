package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Session status values.
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// RoomSession is the durable record of one collaborative sitting in a
// room: who took part and what was said. Distinct from live presence,
// which is tracked in memory by the realtime hub.
type RoomSession struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	RoomID       uint                 `gorm:"not null;index" json:"roomId"`
	Status       string               `gorm:"default:active" json:"status"`
	Messages     MessageLog           `gorm:"type:jsonb" json:"messages"`
	Participants []SessionParticipant `gorm:"foreignKey:SessionID" json:"participants"`
	StartedAt    time.Time            `json:"startedAt"`
	EndedAt      *time.Time           `json:"endedAt,omitempty"`
}

type SessionParticipant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SessionID uint       `gorm:"not null;index" json:"sessionId"`
	UserID    uint       `gorm:"not null" json:"userId"`
	Role      string     `gorm:"default:participant" json:"role"`
	IsActive  bool       `gorm:"default:true" json:"isActive"`
	JoinedAt  time.Time  `json:"joinedAt"`
	LeftAt    *time.Time `json:"leftAt,omitempty"`
}

type SessionMessage struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageLog is the session chat log stored as a JSONB column.
type MessageLog []SessionMessage

func (l MessageLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *MessageLog) Scan(value interface{}) error {
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
		return errors.New("unsupported type for MessageLog")
	}
}
