package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"qualityhair-hub/internal/api/middleware"
	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/service"
)

type CodeHandler struct {
	codeService *service.CodeService
}

func NewCodeHandler(codeService *service.CodeService) *CodeHandler {
	return &CodeHandler{codeService: codeService}
}

// RegisterPublicCodeRoutes mounts the storefront code lookup.
func RegisterPublicCodeRoutes(group *gin.RouterGroup, codeService *service.CodeService) {
	if codeService == nil {
		return
	}

	handler := NewCodeHandler(codeService)
	group.GET("/codes/:code", middleware.RateLimitByIP(30, time.Minute), handler.Lookup)
}

// RegisterAdminCodeRoutes mounts the listing endpoint behind the internal
// token group.
func RegisterAdminCodeRoutes(group *gin.RouterGroup, codeService *service.CodeService) {
	if codeService == nil {
		return
	}

	handler := NewCodeHandler(codeService)
	group.GET("/codes", handler.List)
}

func (h *CodeHandler) Lookup(c *gin.Context) {
	status, err := h.codeService.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleCodeServiceError(c, status, err)
		return
	}

	response.Success(c, status)
}

func (h *CodeHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	var used *bool
	if raw := strings.TrimSpace(c.Query("used")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid used")
			return
		}
		used = &value
	}

	var activeAt *time.Time
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid active")
			return
		}
		if active {
			now := time.Now().UTC()
			activeAt = &now
		}
	}

	items, err := h.codeService.List(c.Request.Context(), used, activeAt, page, pageSize)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	response.Success(c, items)
}

// handleCodeServiceError still returns the code status alongside the error
// code so the storefront can explain why a known code is unusable.
func handleCodeServiceError(c *gin.Context, status *service.CodeStatus, err error) {
	switch {
	case errors.Is(err, service.ErrDiscountCodeNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCodeNotFound, "code not found")
	case errors.Is(err, service.ErrDiscountCodeUsed):
		c.JSON(http.StatusConflict, response.Response{
			Code:    response.ErrCodeUsed,
			Message: "code already used",
			Data:    status,
		})
	case errors.Is(err, service.ErrDiscountCodeInactive):
		c.JSON(http.StatusConflict, response.Response{
			Code:    response.ErrCodeExpired,
			Message: "code not yet active",
			Data:    status,
		})
	case errors.Is(err, service.ErrDiscountCodeExpired):
		c.JSON(http.StatusGone, response.Response{
			Code:    response.ErrCodeExpired,
			Message: "code expired",
			Data:    status,
		})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
