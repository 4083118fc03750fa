package routes

import (
	"time"

	"codehub/internal/api/handlers"
	"codehub/internal/api/middleware"
	"codehub/internal/config"
	"codehub/internal/realtime"
	"codehub/internal/repositories/postgres"
	"codehub/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine        *gin.Engine
	wsHandler     *handlers.WSHandler
	authHandler   *handlers.AuthHandler
	roomHandler   *handlers.RoomHandler
	userHandler   *handlers.UserHandler
	reviewHandler *handlers.ReviewHandler
	rateLimitMW   *middleware.RateLimitMiddleware
	authMW        *middleware.AuthMiddleware
}

func NewRouter(
	coordinator *realtime.Coordinator,
	presence *services.PresenceService,
	db *gorm.DB,
	cfg *config.Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogAPI())

	userRepo := postgres.NewUserRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	roomService := services.NewRoomService(roomRepo, sessionRepo)

	return &Router{
		engine:        engine,
		wsHandler:     handlers.NewWSHandler(coordinator, userRepo, cfg.JWT.Secret),
		authHandler:   handlers.NewAuthHandler(authService),
		roomHandler:   handlers.NewRoomHandler(roomService),
		userHandler:   handlers.NewUserHandler(userRepo),
		reviewHandler: handlers.NewReviewHandler(reviewRepo, roomService),
		rateLimitMW:   middleware.NewRateLimitMiddleware(presence),
		authMW:        middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint authenticates via query token inside the
	// handler, not through the Bearer middleware.
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.userHandler.GetProfile)
			users.PUT("/profile", r.userHandler.UpdateProfile)
		}

		rooms := auth.Group("/rooms")
		rooms.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			rooms.GET("/", r.roomHandler.ListRooms)
			rooms.POST("/", r.roomHandler.CreateRoom)
			rooms.GET("/:id", r.roomHandler.GetRoom)
			rooms.PUT("/:id", r.roomHandler.UpdateRoom)
			rooms.DELETE("/:id", r.roomHandler.DeleteRoom)
			rooms.GET("/:id/reviews", r.reviewHandler.ListRoomReviews)
			rooms.POST("/:id/reviews", r.reviewHandler.CreateReview)
		}

		reviews := auth.Group("/reviews")
		reviews.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			reviews.DELETE("/:reviewId", r.reviewHandler.DeleteReview)
		}
	}

	public := api.Group("/")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
		{
			authRoutes.POST("/register", r.authHandler.Register)
			authRoutes.POST("/login", r.authHandler.Login)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
