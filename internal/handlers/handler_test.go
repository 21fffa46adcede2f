package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
)

const (
	adminID = "650000000000000000000003"
	proID   = "650000000000000000000002"
)

func TestErrorResponse(t *testing.T) {
	status, msg := errorResponse(services.ErrWrongPassword)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Mot de passe incorrect.", msg)

	status, msg = errorResponse(fmt.Errorf("%w: pending -> paid", services.ErrInvalidTransition))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Ce changement de statut n'est pas autorisé.", msg)

	status, _ = errorResponse(services.ErrTooManyRequests)
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, msg = errorResponse(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Une erreur est survenue. Veuillez réessayer.", msg)
}

func TestEveryServiceErrorHasAMessage(t *testing.T) {
	for _, m := range errorMessages {
		assert.NotEmpty(t, m.msg, m.err.Error())
		assert.Less(t, m.status, http.StatusInternalServerError, m.err.Error())
	}
}

func TestLogin_ReturnsTokenAndSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "patient@demo.health-e.sn", "password": "motdepasse"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "tok", body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "patient", user["type"])
	require.Len(t, env.sessions.resolved, 1)
}

func TestLogin_FrenchErrors(t *testing.T) {
	env := newTestEnv(t)
	env.auth.loginErr = services.ErrTooManyRequests

	w := env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.sn", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Trop de tentatives. Veuillez réessayer plus tard.", decodeBody(t, w)["error"])

	w = env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.sn"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t)
	userID := "650000000000000000000001"
	token := env.token(t, userID, models.UserTypePatient)

	w := env.do(http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.sessions.cached[userID] = &models.Session{ID: userID, FullName: "Mirroir"}
	w = env.do(http.MethodGet, "/api/session?cached=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mirroir", decodeBody(t, w)["fullName"])
	assert.Empty(t, env.sessions.resolved)

	w = env.do(http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Résolu", decodeBody(t, w)["fullName"])
	require.Len(t, env.sessions.resolved, 1)
	assert.Equal(t, userID+"@example.sn", env.sessions.resolved[0].Email)
}

func TestGetSession_NullTypeIsSerialised(t *testing.T) {
	env := newTestEnv(t)
	userID := "650000000000000000000009"
	env.sessions.cached[userID] = &models.Session{ID: userID, Degraded: true}

	w := env.do(http.MethodGet, "/api/session?cached=1", env.token(t, userID, models.UserTypePatient), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	v, present := body["type"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestLogout_DropsMirror(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/logout", env.token(t, proID, models.UserTypeProfessional), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{proID}, env.sessions.dropped)
}

func TestUpdateWithdrawalStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, adminID, models.UserTypeAdmin)
	path := "/api/admin/withdrawals/650000000000000000000f01/status"

	w := env.do(http.MethodPatch, path, env.token(t, proID, models.UserTypeProfessional), map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, env.withdrawals.changes)

	w = env.do(http.MethodPatch, path, admin, map[string]string{"status": "rejected", "note": "RIB invalide"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.withdrawals.changes, 1)
	change := env.withdrawals.changes[0]
	assert.Equal(t, "650000000000000000000f01", change.WithdrawalID)
	assert.Equal(t, models.WithdrawalRejected, change.Target)
	assert.Equal(t, adminID, change.ActorID)
	assert.Equal(t, "RIB invalide", change.Note)

	env.withdrawals.updateErr = services.ErrNoteRequired
	w = env.do(http.MethodPatch, path, admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Un motif est requis pour rejeter une demande.", decodeBody(t, w)["error"])

	env.withdrawals.updateErr = services.ErrWithdrawalFinalized
	w = env.do(http.MethodPatch, path, admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequestWithdrawal_ProfessionalsOnly(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"amount": 5000, "method": "wave", "accountIdentifier": "+221770000000"}

	w := env.do(http.MethodPost, "/api/withdrawals", env.token(t, adminID, models.UserTypeAdmin), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/withdrawals", env.token(t, proID, models.UserTypeProfessional), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	assert.Equal(t, "Résolu", created["professionalName"])
	assert.Equal(t, proID, created["professionalId"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
