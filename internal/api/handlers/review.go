package handlers

import (
	"errors"
	"net/http"

	"codehub/internal/models"
	"codehub/internal/repositories/postgres"
	"codehub/internal/services"

	"github.com/gin-gonic/gin"
)

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ReviewHandler struct {
	reviews postgres.ReviewRepository
	rooms   *services.RoomService
}

func NewReviewHandler(reviews postgres.ReviewRepository, rooms *services.RoomService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, rooms: rooms}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	review := &models.Review{
		RoomID:  room.ID,
		UserID:  c.GetUint("user_id"),
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.reviews.Create(c.Request.Context(), review); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create review"})
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) ListRoomReviews(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	reviews, err := h.reviews.FindByRoomID(c.Request.Context(), room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reviews"})
		return
	}

	c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	review, err := h.reviews.FindByID(c.Request.Context(), parseUintParam(c, "reviewId"))
	if err != nil {
		if errors.Is(err, postgres.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load review"})
		return
	}

	if review.UserID != c.GetUint("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your review"})
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), review.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
