package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
)

type RegisterUserRequest struct {
	FullName    string          `json:"fullName" binding:"required"`
	Email       string          `json:"email" binding:"required"`
	Password    string          `json:"password" binding:"required"`
	Phone       string          `json:"phone"`
	Type        models.UserType `json:"type"`
	Specialty   string          `json:"specialty"`
	ServiceType string          `json:"serviceType"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Type:        req.Type,
		Specialty:   req.Specialty,
		ServiceType: req.ServiceType,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login returns the token together with the resolved session, so the
// client never has to make a second round trip.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	session := h.sessions.Resolve(c.Request.Context(), res.Identity)
	c.JSON(http.StatusOK, gin.H{"token": res.Token, "user": session})
}

// GetSession resolves the caller's session. With ?cached=1 the mirrored
// copy is served when present.
func (h *Handler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("cached") == "1" {
		if sess, ok := h.sessions.Cached(ctx, currentUserID(c)); ok {
			c.JSON(http.StatusOK, sess)
			return
		}
	}
	c.JSON(http.StatusOK, h.sessions.Resolve(ctx, currentIdentity(c)))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName    *string `json:"fullName"`
		Phone       *string `json:"phone"`
		Specialty   *string `json:"specialty"`
		ServiceType *string `json:"serviceType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	upd := models.ProfileUpdate{FullName: req.FullName, Phone: req.Phone}
	if currentUserType(c) == models.UserTypeProfessional {
		upd.Specialty = req.Specialty
		upd.ServiceType = req.ServiceType
	}
	if _, err := h.auth.UpdateProfile(c.Request.Context(), currentUserID(c), upd); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessions.Resolve(c.Request.Context(), currentIdentity(c)))
}

func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Invalidate(c.Request.Context(), currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie."})
}
