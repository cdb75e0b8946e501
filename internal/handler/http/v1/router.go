package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршруты устройства, без аутентификации
	api.POST("/user/location", h.recordLocation)
	api.POST("/reports", h.createReport)
	api.POST("/predictive/check", h.checkThreat)

	// Маршруты оператора
	operator := api.Group("", APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		operator.GET("/reports", h.listReports)
		operator.GET("/reports/:id", h.getReport)
		operator.POST("/reports/:id/confirm", h.confirmReport)
		operator.GET("/stats", h.getStats)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
