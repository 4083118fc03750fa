package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"codehub/internal/models"
	"codehub/internal/repositories/postgres"
)

type memoryRoomRepo struct {
	rooms  map[uint]*models.Room
	nextID uint
}

func newMemoryRoomRepo() *memoryRoomRepo {
	return &memoryRoomRepo{rooms: make(map[uint]*models.Room)}
}

func (r *memoryRoomRepo) Create(_ context.Context, room *models.Room) error {
	r.nextID++
	room.ID = r.nextID
	r.rooms[room.ID] = room
	return nil
}

func (r *memoryRoomRepo) FindByID(_ context.Context, id uint) (*models.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, postgres.ErrRoomNotFound
	}
	return room, nil
}

func (r *memoryRoomRepo) FindByUUID(_ context.Context, id string) (*models.Room, error) {
	for _, room := range r.rooms {
		if room.UUID == id {
			return room, nil
		}
	}
	return nil, postgres.ErrRoomNotFound
}

func (r *memoryRoomRepo) Resolve(ctx context.Context, id string) (*models.Room, error) {
	if room, err := r.FindByUUID(ctx, id); err == nil {
		return room, nil
	}
	numeric, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, postgres.ErrRoomNotFound
	}
	return r.FindByID(ctx, uint(numeric))
}

func (r *memoryRoomRepo) List(_ context.Context, publicOnly bool) ([]*models.Room, error) {
	var out []*models.Room
	for _, room := range r.rooms {
		if publicOnly && !room.Settings.IsPublic {
			continue
		}
		out = append(out, room)
	}
	return out, nil
}

func (r *memoryRoomRepo) Update(_ context.Context, room *models.Room) error {
	r.rooms[room.ID] = room
	return nil
}

func (r *memoryRoomRepo) UpdateCode(_ context.Context, _ uint, _, _ string) error { return nil }

func (r *memoryRoomRepo) SaveWhiteboard(_ context.Context, _ uint, _ string) (int64, error) {
	return 0, nil
}

func (r *memoryRoomRepo) IncrementExecutions(_ context.Context, _ uint) error { return nil }

func (r *memoryRoomRepo) AppendActivity(_ context.Context, _ uint, _ models.ActivityEntry) error {
	return nil
}

func (r *memoryRoomRepo) UpdateFileContent(_ context.Context, _ uint, _, _ string, _ uint) error {
	return nil
}

func (r *memoryRoomRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.rooms[id]; !ok {
		return postgres.ErrRoomNotFound
	}
	delete(r.rooms, id)
	return nil
}

type memorySessionRepo struct {
	sessions map[uint]*models.RoomSession
	nextID   uint
	ended    []uint
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[uint]*models.RoomSession)}
}

func (r *memorySessionRepo) Create(_ context.Context, session *models.RoomSession) error {
	r.nextID++
	session.ID = r.nextID
	r.sessions[session.ID] = session
	return nil
}

func (r *memorySessionRepo) FindActiveByRoom(_ context.Context, roomID uint) (*models.RoomSession, error) {
	for _, session := range r.sessions {
		if session.RoomID == roomID && session.Status == models.SessionStatusActive {
			return session, nil
		}
	}
	return nil, errors.New("no active session")
}

func (r *memorySessionRepo) End(_ context.Context, sessionID uint) error {
	session, ok := r.sessions[sessionID]
	if !ok {
		return errors.New("no such session")
	}
	session.Status = models.SessionStatusEnded
	r.ended = append(r.ended, sessionID)
	return nil
}

func (r *memorySessionRepo) AppendMessage(_ context.Context, _ uint, _ models.SessionMessage) error {
	return nil
}

func (r *memorySessionRepo) UpsertParticipant(_ context.Context, _, _ uint, _ string) error {
	return nil
}

func (r *memorySessionRepo) MarkParticipantLeft(_ context.Context, _, _ uint) error { return nil }

func (r *memorySessionRepo) ParticipantsForRoom(_ context.Context, _ uint) ([]*models.SessionParticipant, error) {
	return nil, nil
}

func TestCreateRoom(t *testing.T) {
	rooms := newMemoryRoomRepo()
	sessions := newMemorySessionRepo()
	service := NewRoomService(rooms, sessions)
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, 1, &CreateRoomRequest{Name: "pairing"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if room.UUID == "" {
		t.Error("Room should be assigned a UUID")
	}
	if room.Language != "javascript" {
		t.Errorf("Default language should be javascript, got %q", room.Language)
	}
	if !room.Settings.CodeExecution || room.Settings.MaxParticipants != 10 || !room.Settings.IsPublic {
		t.Errorf("Unexpected default settings: %+v", room.Settings)
	}

	if _, err := sessions.FindActiveByRoom(ctx, room.ID); err != nil {
		t.Error("New room should start with an active session")
	}

	t.Run("ResolveByUUIDAndID", func(t *testing.T) {
		byUUID, err := service.GetRoom(ctx, room.UUID)
		if err != nil || byUUID.ID != room.ID {
			t.Errorf("Room should resolve by UUID: %v", err)
		}
		byID, err := service.GetRoom(ctx, strconv.FormatUint(uint64(room.ID), 10))
		if err != nil || byID.ID != room.ID {
			t.Errorf("Room should resolve by numeric id: %v", err)
		}
	})
}

func TestUpdateRoomOwnership(t *testing.T) {
	rooms := newMemoryRoomRepo()
	sessions := newMemorySessionRepo()
	service := NewRoomService(rooms, sessions)
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, 1, &CreateRoomRequest{Name: "pairing"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	disabled := false
	if _, err := service.UpdateRoom(ctx, room.UUID, 2, &UpdateRoomRequest{CodeExecution: &disabled}); err != ErrNotRoomOwner {
		t.Errorf("Non-owner update should fail with ErrNotRoomOwner, got %v", err)
	}

	updated, err := service.UpdateRoom(ctx, room.UUID, 1, &UpdateRoomRequest{CodeExecution: &disabled})
	if err != nil {
		t.Fatalf("Owner update failed: %v", err)
	}
	if updated.Settings.CodeExecution {
		t.Error("CodeExecution should be disabled")
	}
	if updated.Name != "pairing" {
		t.Error("Unset fields must be left untouched")
	}
}

func TestDeleteRoomEndsSession(t *testing.T) {
	rooms := newMemoryRoomRepo()
	sessions := newMemorySessionRepo()
	service := NewRoomService(rooms, sessions)
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, 1, &CreateRoomRequest{Name: "pairing"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if err := service.DeleteRoom(ctx, room.UUID, 2); err != ErrNotRoomOwner {
		t.Errorf("Non-owner delete should fail with ErrNotRoomOwner, got %v", err)
	}

	if err := service.DeleteRoom(ctx, room.UUID, 1); err != nil {
		t.Fatalf("Owner delete failed: %v", err)
	}
	if len(sessions.ended) != 1 {
		t.Error("Deleting a room should end its active session")
	}
	if _, err := service.GetRoom(ctx, room.UUID); err == nil {
		t.Error("Deleted room should no longer resolve")
	}
}
