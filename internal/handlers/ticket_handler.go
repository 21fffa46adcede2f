package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthe/healthe-api/internal/models"
)

func (h *Handler) CreateTicket(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	ticket, err := h.tickets.Open(c.Request.Context(), h.actor(c, true), req.Subject, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) ListTickets(c *gin.Context) {
	tickets, err := h.tickets.List(c.Request.Context(), h.actor(c, false), models.TicketStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.tickets.Get(c.Request.Context(), h.actor(c, false), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) ReplyTicket(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	ticket, err := h.tickets.Reply(c.Request.Context(), h.actor(c, false), c.Param("id"), req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) UpdateTicketStatus(c *gin.Context) {
	var req struct {
		Status models.TicketStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	ticket, err := h.tickets.SetStatus(c.Request.Context(), h.actor(c, false), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
