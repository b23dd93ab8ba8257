package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qualityhair-hub/internal/api/middleware"
	v1 "qualityhair-hub/internal/api/v1"
	"qualityhair-hub/internal/service"
	"qualityhair-hub/internal/sse"
	systemlog "qualityhair-hub/pkg/logger"
)

type Services struct {
	Checkout     *service.CheckoutService
	Booking      *service.BookingService
	Code         *service.CodeService
	Consultation *service.ConsultationService
	Audit        *service.AuditService
}

// RegisterRoutes wires the public storefront surface, the public v1 helpers
// and the internal-token admin group onto the engine.
func RegisterRoutes(
	engine *gin.Engine,
	services Services,
	hub *sse.SSEHub,
	logStore *systemlog.SystemLogStore,
	webhookSigningKey string,
	internalToken string,
	logger *zap.Logger,
) {
	v1.RegisterCheckoutRoutes(engine, services.Checkout)
	v1.RegisterWebhookRoutes(engine, services.Booking, webhookSigningKey, logger)

	public := engine.Group("/api/v1")
	v1.RegisterRecommendationRoutes(public)
	v1.RegisterPublicCodeRoutes(public, services.Code)

	admin := engine.Group("/api/v1")
	admin.Use(middleware.InternalTokenAuth(internalToken))
	v1.RegisterAdminCodeRoutes(admin, services.Code)
	v1.RegisterConsultationRoutes(admin, services.Consultation)
	v1.RegisterAuditRoutes(admin, services.Audit)
	v1.RegisterSystemRoutes(admin, services.Consultation, services.Code, logStore)
	v1.RegisterSSERoutes(admin, hub)
}
