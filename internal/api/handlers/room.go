package handlers

import (
	"errors"
	"net/http"

	"codehub/internal/repositories/postgres"
	"codehub/internal/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), c.GetUint("user_id"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context(), true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	var req services.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.UpdateRoom(c.Request.Context(), c.Param("id"), c.GetUint("user_id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, services.ErrNotRoomOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can update a room"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
		}
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("id"), c.GetUint("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, services.ErrNotRoomOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete a room"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
