package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carebook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/lock", h.LockSlot)
	rg.GET("/bookings/:id", h.GetPendingBooking)
}

func (h *Handler) LockSlot(c *gin.Context) {
	var req LockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.PatientID = c.GetInt64("user_id")

	res, err := h.service.LockSlot(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotUnavailable):
			response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "Slot is no longer available, please choose another")
		case errors.Is(err, ErrSpecialtyNotFound):
			response.Error(c, http.StatusUnprocessableEntity, "SPECIALTY_NOT_FOUND", "Unknown specialty")
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid lock request")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lock slot")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"pending_booking": res.PendingBooking,
		"slot":            res.Slot,
		"expires_at":      res.ExpiresAt,
	})
}

func (h *Handler) GetPendingBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return
	}

	pb, err := h.service.GetPendingBooking(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPendingBookingNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Pending booking not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load booking")
		return
	}

	// Patients may only see their own bookings.
	if pb.PatientID != c.GetInt64("user_id") && c.GetString("role") != "admin" {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your booking")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pending_booking": pb})
}
