package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/service"
)

type ConsultationHandler struct {
	consultationService *service.ConsultationService
}

func NewConsultationHandler(consultationService *service.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{consultationService: consultationService}
}

func RegisterConsultationRoutes(group *gin.RouterGroup, consultationService *service.ConsultationService) {
	if consultationService == nil {
		return
	}

	handler := NewConsultationHandler(consultationService)
	group.GET("/consultations", handler.List)
	group.GET("/consultations/:id", handler.Get)
}

func (h *ConsultationHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	var status *model.ConsultationStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		value := model.ConsultationStatus(raw)
		if value != model.ConsultationStatusPaid && value != model.ConsultationStatusCompleted {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid status")
			return
		}
		status = &value
	}

	var email *string
	if raw := strings.TrimSpace(c.Query("email")); raw != "" {
		email = &raw
	}

	items, total, err := h.consultationService.List(c.Request.Context(), status, email, page, pageSize)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	response.Paginated(c, items, page, pageSize, total)
}

func (h *ConsultationHandler) Get(c *gin.Context) {
	detail, err := h.consultationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidConsultationID):
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid consultation id")
		case errors.Is(err, service.ErrConsultationNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrConsultationNotFound, "consultation not found")
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		}
		return
	}

	response.Success(c, detail)
}
