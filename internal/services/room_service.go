package services

import (
	"context"
	"errors"

	"codehub/internal/models"
	"codehub/internal/repositories/postgres"

	"github.com/google/uuid"
)

var ErrNotRoomOwner = errors.New("not the room owner")

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
	Language    string `json:"language"`
	IsPublic    *bool  `json:"isPublic"`
}

type UpdateRoomRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	CodeExecution   *bool   `json:"codeExecution"`
	MaxParticipants *int    `json:"maxParticipants"`
	IsPublic        *bool   `json:"isPublic"`
}

type RoomService struct {
	rooms    postgres.RoomRepository
	sessions postgres.SessionRepository
}

func NewRoomService(rooms postgres.RoomRepository, sessions postgres.SessionRepository) *RoomService {
	return &RoomService{rooms: rooms, sessions: sessions}
}

func (s *RoomService) CreateRoom(ctx context.Context, ownerID uint, req *CreateRoomRequest) (*models.Room, error) {
	language := req.Language
	if language == "" {
		language = "javascript"
	}

	room := &models.Room{
		UUID:        uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		Language:    language,
		Settings: models.RoomSettings{
			CodeExecution:   true,
			MaxParticipants: 10,
			IsPublic:        req.IsPublic == nil || *req.IsPublic,
		},
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	// Every room starts with an active session so chat has somewhere
	// to be persisted.
	session := &models.RoomSession{
		RoomID: room.ID,
		Status: models.SessionStatusActive,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return s.rooms.Resolve(ctx, id)
}

func (s *RoomService) ListRooms(ctx context.Context, publicOnly bool) ([]*models.Room, error) {
	return s.rooms.List(ctx, publicOnly)
}

func (s *RoomService) UpdateRoom(ctx context.Context, id string, userID uint, req *UpdateRoomRequest) (*models.Room, error) {
	room, err := s.rooms.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, ErrNotRoomOwner
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	if req.CodeExecution != nil {
		room.Settings.CodeExecution = *req.CodeExecution
	}
	if req.MaxParticipants != nil {
		room.Settings.MaxParticipants = *req.MaxParticipants
	}
	if req.IsPublic != nil {
		room.Settings.IsPublic = *req.IsPublic
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, id string, userID uint) error {
	room, err := s.rooms.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return ErrNotRoomOwner
	}

	if session, err := s.sessions.FindActiveByRoom(ctx, room.ID); err == nil {
		if err := s.sessions.End(ctx, session.ID); err != nil {
			return err
		}
	}

	return s.rooms.Delete(ctx, room.ID)
}
