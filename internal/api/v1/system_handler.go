package v1

import (
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/service"
	systemlog "qualityhair-hub/pkg/logger"
)

type SystemHandler struct {
	consultationService *service.ConsultationService
	codeService         *service.CodeService
	logStore            *systemlog.SystemLogStore
	startedAt           time.Time
}

func NewSystemHandler(
	consultationService *service.ConsultationService,
	codeService *service.CodeService,
	logStore *systemlog.SystemLogStore,
) *SystemHandler {
	return &SystemHandler{
		consultationService: consultationService,
		codeService:         codeService,
		logStore:            logStore,
		startedAt:           time.Now(),
	}
}

func RegisterSystemRoutes(
	group *gin.RouterGroup,
	consultationService *service.ConsultationService,
	codeService *service.CodeService,
	logStore *systemlog.SystemLogStore,
) {
	handler := NewSystemHandler(consultationService, codeService, logStore)
	system := group.Group("/system")
	system.GET("/status", handler.Status)
	system.GET("/logs", handler.QueryLogs)
}

// Status reports host health plus the two business gauges the dashboard
// shows next to them.
func (h *SystemHandler) Status(c *gin.Context) {
	status := gin.H{
		"goroutines": runtime.NumGoroutine(),
		"uptime_sec": int64(time.Since(h.startedAt).Seconds()),
	}

	if values, err := cpu.Percent(0, false); err == nil && len(values) > 0 {
		status["cpu_percent"] = values[0]
	}
	if stat, err := mem.VirtualMemory(); err == nil {
		status["mem_percent"] = stat.UsedPercent
	}
	if info, err := host.Info(); err == nil {
		status["hostname"] = info.Hostname
		status["os"] = info.OS
		status["host_uptime_sec"] = info.Uptime
	}

	ctx := c.Request.Context()
	if h.consultationService != nil {
		if pending, err := h.consultationService.CountPending(ctx); err == nil {
			status["pending_consultations"] = pending
		}
	}
	if h.codeService != nil {
		if active, err := h.codeService.CountActive(ctx); err == nil {
			status["active_codes"] = active
		}
	}

	response.Success(c, status)
}

func (h *SystemHandler) QueryLogs(c *gin.Context) {
	if h.logStore == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "log service unavailable")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)
	level := strings.TrimSpace(c.Query("level"))
	keyword := strings.TrimSpace(c.Query("keyword"))

	from, err := parseSystemLogTime(c.Query("from"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid from")
		return
	}
	to, err := parseSystemLogTime(c.Query("to"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid to")
		return
	}

	items, total := h.logStore.QueryLogs(level, from, to, keyword, page, pageSize)
	response.Paginated(c, items, page, pageSize, total)
}

func parseSystemLogTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts.UTC(), nil
	}

	return time.Time{}, errors.New("invalid time")
}
