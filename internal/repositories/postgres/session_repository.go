package postgres

import (
	"context"
	"errors"
	"time"

	"codehub/internal/models"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, session *models.RoomSession) error
	FindActiveByRoom(ctx context.Context, roomID uint) (*models.RoomSession, error)
	End(ctx context.Context, sessionID uint) error
	AppendMessage(ctx context.Context, sessionID uint, msg models.SessionMessage) error
	UpsertParticipant(ctx context.Context, sessionID, userID uint, role string) error
	MarkParticipantLeft(ctx context.Context, sessionID, userID uint) error
	ParticipantsForRoom(ctx context.Context, roomID uint) ([]*models.SessionParticipant, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.RoomSession) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindActiveByRoom(ctx context.Context, roomID uint) (*models.RoomSession, error) {
	var session models.RoomSession
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, models.SessionStatusActive).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return &session, err
}

func (r *sessionRepository) End(ctx context.Context, sessionID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.RoomSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":   models.SessionStatusEnded,
			"ended_at": &now,
		}).Error
}

func (r *sessionRepository) AppendMessage(ctx context.Context, sessionID uint, msg models.SessionMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.RoomSession
		if err := tx.Select("id", "messages").First(&session, "id = ?", sessionID).Error; err != nil {
			return err
		}
		session.Messages = append(session.Messages, msg)
		return tx.Model(&models.RoomSession{}).
			Where("id = ?", sessionID).
			UpdateColumn("messages", session.Messages).Error
	})
}

func (r *sessionRepository) UpsertParticipant(ctx context.Context, sessionID, userID uint, role string) error {
	var participant models.SessionParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&models.SessionParticipant{
			SessionID: sessionID,
			UserID:    userID,
			Role:      role,
			IsActive:  true,
			JoinedAt:  time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&participant).
		Updates(map[string]interface{}{"is_active": true, "left_at": nil}).Error
}

func (r *sessionRepository) MarkParticipantLeft(ctx context.Context, sessionID, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.SessionParticipant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]interface{}{"is_active": false, "left_at": &now}).Error
}

func (r *sessionRepository) ParticipantsForRoom(ctx context.Context, roomID uint) ([]*models.SessionParticipant, error) {
	var participants []*models.SessionParticipant
	err := r.db.WithContext(ctx).
		Joins("JOIN room_sessions ON room_sessions.id = session_participants.session_id").
		Where("room_sessions.room_id = ? AND room_sessions.status = ?", roomID, models.SessionStatusActive).
		Find(&participants).Error
	return participants, err
}
