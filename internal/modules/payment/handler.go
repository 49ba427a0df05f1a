package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"carebook/internal/modules/booking"
	"carebook/internal/pkg/response"
)

const signatureHeader = "X-Payment-Signature"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterWebhookRoutes mounts the unauthenticated processor callback; the
// HMAC signature is the authentication.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/initiate", h.Initiate)
	rg.GET("/payments/verify/:tx_ref", h.Verify)
}

func (h *Handler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.InitiatePayment(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrPendingBookingNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Pending booking not found")
		case errors.Is(err, ErrBookingNotPayable):
			response.Error(c, http.StatusConflict, "NOT_PAYABLE", "Booking is expired or not payable")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to initiate payment")
		}
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable body")
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), c.GetHeader(signatureHeader), body)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			response.Error(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature validation failed")
		case errors.Is(err, ErrAmountMismatch):
			response.Error(c, http.StatusBadRequest, "AMOUNT_MISMATCH", "Callback amount does not match booking")
		case errors.Is(err, booking.ErrPendingBookingNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Unknown transaction reference")
		case errors.Is(err, booking.ErrSlotUnavailable):
			// Lock was reclaimed before the payment landed; acknowledged so the
			// processor stops retrying, the patient is refunded out of band.
			response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "Slot no longer held by this booking")
		case errors.Is(err, booking.ErrSlotNotFound):
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Booking state is inconsistent")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process webhook")
		}
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Verify(c *gin.Context) {
	res, err := h.service.VerifyAndSettle(c.Request.Context(), c.Param("tx_ref"))
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrPendingBookingNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Unknown transaction reference")
		case errors.Is(err, booking.ErrSlotUnavailable):
			response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "Slot no longer held by this booking")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify payment")
		}
		return
	}
	response.Success(c, http.StatusOK, res)
}
