package slots

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carebook/internal/pkg/response"
	"carebook/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.FindAvailable)
}

func (h *Handler) RegisterCaregiverRoutes(rg *gin.RouterGroup) {
	rg.POST("/slots/generate", h.Generate)
}

func (h *Handler) FindAvailable(c *gin.Context) {
	var f repository.SlotFilter

	if v := c.Query("caregiver_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid caregiver_id")
			return
		}
		f.CaregiverID = id
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid date_from")
			return
		}
		f.DateFrom = t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid date_to")
			return
		}
		f.DateTo = t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit")
			return
		}
		f.Limit = n
	}
	f.IncludeLocked = c.Query("include_locked") == "true"

	out, err := h.service.FindAvailable(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list slots")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slots": out})
}

func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.CaregiverID = c.GetInt64("user_id")

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate slots")
		return
	}
	response.Success(c, http.StatusCreated, res)
}
