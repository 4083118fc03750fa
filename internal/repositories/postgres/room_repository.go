package postgres

import (
	"context"
	"errors"
	"strconv"

	"codehub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByUUID(ctx context.Context, id string) (*models.Room, error)
	// Resolve looks a room up by either identifier format: the UUID
	// external id is tried first, then the numeric storage id.
	Resolve(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context, publicOnly bool) ([]*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	UpdateCode(ctx context.Context, roomID uint, code, language string) error
	SaveWhiteboard(ctx context.Context, roomID uint, drawData string) (int64, error)
	IncrementExecutions(ctx context.Context, roomID uint) error
	AppendActivity(ctx context.Context, roomID uint, entry models.ActivityEntry) error
	UpdateFileContent(ctx context.Context, roomID uint, fileID, content string, updatedBy uint) error
	Delete(ctx context.Context, id uint) error
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	return &room, err
}

func (r *roomRepository) FindByUUID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, "uuid = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	return &room, err
}

func (r *roomRepository) Resolve(ctx context.Context, id string) (*models.Room, error) {
	if _, err := uuid.Parse(id); err == nil {
		room, err := r.FindByUUID(ctx, id)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
	}
	if numeric, err := strconv.ParseUint(id, 10, 64); err == nil {
		return r.FindByID(ctx, uint(numeric))
	}
	return nil, ErrRoomNotFound
}

func (r *roomRepository) List(ctx context.Context, publicOnly bool) ([]*models.Room, error) {
	var rooms []*models.Room
	q := r.db.WithContext(ctx)
	if publicOnly {
		q = q.Where("settings_is_public = ?", true)
	}
	err := q.Order("created_at DESC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepository) UpdateCode(ctx context.Context, roomID uint, code, language string) error {
	return r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{"code": code, "language": language}).Error
}

// SaveWhiteboard persists the draw payload and bumps the monotonic
// whiteboard version, returning the new version.
func (r *roomRepository) SaveWhiteboard(ctx context.Context, roomID uint, drawData string) (int64, error) {
	var version int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"whiteboard_version": gorm.Expr("whiteboard_version + 1"),
				"whiteboard_data":    drawData,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			Pluck("whiteboard_version", &version).Error
	})
	return version, err
}

func (r *roomRepository) IncrementExecutions(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		UpdateColumn("execution_count", gorm.Expr("execution_count + 1")).Error
}

func (r *roomRepository) AppendActivity(ctx context.Context, roomID uint, entry models.ActivityEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Select("id", "activity_log").First(&room, "id = ?", roomID).Error; err != nil {
			return err
		}
		log := room.ActivityLog.Append(entry)
		return tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			UpdateColumn("activity_log", log).Error
	})
}

func (r *roomRepository) UpdateFileContent(ctx context.Context, roomID uint, fileID, content string, updatedBy uint) error {
	return r.db.WithContext(ctx).Model(&models.RoomFile{}).
		Where("room_id = ? AND file_id = ?", roomID, fileID).
		Updates(map[string]interface{}{"content": content, "updated_by": updatedBy}).Error
}

func (r *roomRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Room{}, "id = ?", id).Error
}
