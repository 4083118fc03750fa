package main

import (
	"context"
	"log"
	"log/slog"

	"codehub/internal/config"
	"codehub/internal/database"
	"codehub/internal/models"
	"codehub/internal/repositories/postgres"
	"codehub/internal/services"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	slog.Info("Database connection established")

	userRepo := postgres.NewUserRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	roomService := services.NewRoomService(roomRepo, sessionRepo)

	ctx := context.Background()

	slog.Info("Creating initial users...")

	testUsers := []struct {
		username string
		email    string
		password string
	}{
		{"admin", "admin@codehub.dev", "123456"},
		{"alice", "alice@codehub.dev", "123456"},
		{"bob", "bob@codehub.dev", "123456"},
		{"charlie", "charlie@codehub.dev", "123456"},
	}

	var owner *models.User
	for _, userData := range testUsers {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(userData.password), bcrypt.DefaultCost)
		user := &models.User{
			UUID:     uuid.New().String(),
			Username: userData.username,
			Email:    userData.email,
			Password: string(hashedPassword),
		}

		if err := userRepo.Create(ctx, user); err != nil {
			slog.Warn("User might already exist", "username", userData.username, "error", err)
			continue
		}
		slog.Info("Created user", "username", userData.username, "id", user.ID)
		if owner == nil {
			owner = user
		}
	}

	if owner == nil {
		slog.Warn("No fresh users created, skipping demo rooms")
		return
	}

	slog.Info("Creating demo rooms...")

	demoRooms := []services.CreateRoomRequest{
		{Name: "JavaScript Playground", Description: "Scratch space for JS experiments", Language: "javascript"},
		{Name: "Python Interview Prep", Description: "Pairing room for interview practice", Language: "python"},
		{Name: "Go Koans", Description: "Working through exercises together", Language: "go"},
	}

	for i := range demoRooms {
		room, err := roomService.CreateRoom(ctx, owner.ID, &demoRooms[i])
		if err != nil {
			slog.Warn("Failed to create demo room", "name", demoRooms[i].Name, "error", err)
			continue
		}
		slog.Info("Created room", "name", room.Name, "uuid", room.UUID)
	}

	slog.Info("Seeding complete")
}
