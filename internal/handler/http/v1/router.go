package v1

import (
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Сессия разрешается для всех маршрутов; токен опционален
	api.Use(SessionMiddleware(h.provider, h.sessions, h.logger))

	// Маршруты аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", RequireAuth(), h.logout)
		auth.GET("/me", RequireAuth(), h.me)
	}

	// Маршруты для работы с инцидентами
	incidents := api.Group("/incidents")
	{
		incidents.POST("", h.reportIncident) // Анонимная отправка разрешена
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)

		// Привилегированные мутации: допуск решается на границе HTTP
		incidents.POST("/:id/verify", RequireAuth(), RequireRole(models.RoleAdmin, h.logger), h.verifyIncident)
		incidents.DELETE("/:id", RequireAuth(), RequireRole(models.RoleAdmin, h.logger), h.deleteIncident)
	}

	// Загрузка фотографий инцидентов
	api.POST("/uploads/photo", h.uploadPhoto)

	// Живая лента инцидентов по WebSocket
	api.GET("/feed", h.feedWS)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
