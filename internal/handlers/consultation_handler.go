package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
)

// --- PROFESSIONALS DIRECTORY ---
func (h *Handler) ListProfessionals(c *gin.Context) {
	pros, err := h.consultations.Professionals(c.Request.Context(), c.Query("specialty"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pros)
}

// --- BOOK CONSULTATION (patients) ---
func (h *Handler) CreateConsultation(c *gin.Context) {
	var req struct {
		ProfessionalID  string                  `json:"professionalId" binding:"required"`
		ScheduledAt     string                  `json:"scheduledAt" binding:"required"`
		DurationMinutes int                     `json:"durationMinutes"`
		Mode            models.ConsultationMode `json:"mode"`
		Reason          string                  `json:"reason"`
		Amount          int64                   `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Format de date invalide (RFC3339 attendu)."})
		return
	}

	consultation, err := h.consultations.Book(c.Request.Context(), h.actor(c, true), services.BookingInput{
		ProfessionalID:  req.ProfessionalID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		Mode:            req.Mode,
		Reason:          req.Reason,
		Amount:          req.Amount,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, consultation)
}

// --- LIST CONSULTATIONS (scoped to the caller) ---
// Filters: ?startDate=2026-07-01&endDate=2026-07-31&status=confirmed, and
// ?patientId= / ?professionalId= for admins.
func (h *Handler) GetConsultations(c *gin.Context) {
	var filter models.ConsultationFilter

	if startDateStr := c.Query("startDate"); startDateStr != "" {
		if startDate, err := time.Parse("2006-01-02", startDateStr); err == nil {
			filter.From = &startDate
		}
	}
	if endDateStr := c.Query("endDate"); endDateStr != "" {
		if endDate, err := time.Parse("2006-01-02", endDateStr); err == nil {
			// include the entire end day
			endDate = endDate.Add(24*time.Hour - time.Nanosecond)
			filter.To = &endDate
		}
	}
	filter.Status = models.ConsultationStatus(c.Query("status"))

	if currentUserType(c) == models.UserTypeAdmin {
		if id, err := primitive.ObjectIDFromHex(c.Query("patientId")); err == nil {
			filter.PatientID = &id
		}
		if id, err := primitive.ObjectIDFromHex(c.Query("professionalId")); err == nil {
			filter.ProfessionalID = &id
		}
	}

	consultations, err := h.consultations.List(c.Request.Context(), h.actor(c, false), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, consultations)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	consultation, err := h.consultations.Get(c.Request.Context(), h.actor(c, false), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}

// --- COMPLETE / CANCEL CONSULTATION ---
func (h *Handler) UpdateConsultationStatus(c *gin.Context) {
	var req struct {
		Status models.ConsultationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	consultation, err := h.consultations.UpdateStatus(c.Request.Context(), h.actor(c, false), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}
