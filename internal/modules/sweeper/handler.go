package sweeper

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the manual sweep trigger for operators.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/sweep", h.Sweep)
}

func (h *Handler) Sweep(c *gin.Context) {
	res := h.service.SweepExpiredLocks(c.Request.Context())
	response.Success(c, http.StatusOK, res)
}
