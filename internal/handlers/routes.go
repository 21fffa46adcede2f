package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthe/healthe-api/internal/middleware"
	"github.com/healthe/healthe-api/internal/models"
)

// RegisterRoutes mounts every endpoint on r. Everything under /api needs a
// bearer token.
func (h *Handler) RegisterRoutes(r *gin.Engine, tokens middleware.TokenValidator) {
	r.GET("/health", h.Health)
	if h.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.metricsHandler))
	}

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
	}

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/paytech", h.PayTechWebhook)
		webhooks.POST("/paydunya", h.PayDunyaWebhook)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.GET("/session", h.GetSession)
		api.PUT("/profile", h.UpdateProfile)
		api.POST("/logout", h.Logout)

		api.GET("/professionals", h.ListProfessionals)
		api.GET("/consultations", h.GetConsultations)
		api.GET("/consultations/:id", h.GetConsultation)
		api.POST("/consultations", middleware.RequireType(models.UserTypePatient), h.CreateConsultation)
		api.PATCH("/consultations/:id/status", h.UpdateConsultationStatus)

		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.UnreadNotificationCount)
		api.PATCH("/notifications/:id/read", h.MarkNotificationRead)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)

		api.POST("/tickets", h.CreateTicket)
		api.GET("/tickets", h.ListTickets)
		api.GET("/tickets/:id", h.GetTicket)
		api.POST("/tickets/:id/replies", h.ReplyTicket)
	}

	pro := api.Group("")
	pro.Use(middleware.RequireType(models.UserTypeProfessional))
	{
		pro.POST("/withdrawals", h.RequestWithdrawal)
		pro.GET("/withdrawals/mine", h.MyWithdrawals)
		pro.POST("/withdrawals/:id/cancel", h.CancelWithdrawal)
		pro.GET("/revenue/balance", h.RevenueBalance)
		pro.GET("/revenue/transactions", h.RevenueTransactions)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireType(models.UserTypeAdmin))
	{
		admin.GET("/withdrawals", h.ListWithdrawals)
		admin.GET("/withdrawals/:id", h.GetWithdrawal)
		admin.PATCH("/withdrawals/:id/status", h.UpdateWithdrawalStatus)
		admin.PATCH("/tickets/:id/status", h.UpdateTicketStatus)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
