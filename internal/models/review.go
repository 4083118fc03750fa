package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a user's rating of a room after a collaborative session.
type Review struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomID    uint           `gorm:"not null;index" json:"roomId"`
	UserID    uint           `gorm:"not null" json:"userId"`
	Rating    int            `gorm:"not null" json:"rating"`
	Comment   string         `json:"comment"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
