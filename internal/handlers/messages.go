package handlers

import (
	"errors"
	"net/http"

	"github.com/healthe/healthe-api/internal/services"
)

const (
	msgGeneric        = "Une erreur est survenue. Veuillez réessayer."
	msgInvalidRequest = "Requête invalide."
)

type errorMessage struct {
	err    error
	status int
	msg    string
}

var errorMessages = []errorMessage{
	{services.ErrInvalidEmail, http.StatusBadRequest, "Adresse e-mail invalide."},
	{services.ErrWeakPassword, http.StatusBadRequest, "Le mot de passe doit contenir au moins 8 caractères."},
	{services.ErrEmailInUse, http.StatusConflict, "Cette adresse e-mail est déjà utilisée."},
	{services.ErrUserNotFound, http.StatusNotFound, "Aucun compte ne correspond à cette adresse e-mail."},
	{services.ErrWrongPassword, http.StatusUnauthorized, "Mot de passe incorrect."},
	{services.ErrTooManyRequests, http.StatusTooManyRequests, "Trop de tentatives. Veuillez réessayer plus tard."},
	{services.ErrInvalidUserType, http.StatusBadRequest, "Type de compte invalide."},
	{services.ErrForbidden, http.StatusForbidden, "Accès refusé."},
	{services.ErrNothingToUpdate, http.StatusBadRequest, "Aucune modification fournie."},
	{services.ErrInvalidIdentifier, http.StatusBadRequest, "Identifiant invalide."},

	{services.ErrInvalidAmount, http.StatusBadRequest, "Le montant doit être un entier positif."},
	{services.ErrInvalidPayoutMethod, http.StatusBadRequest, "Moyen de paiement invalide."},
	{services.ErrAccountRequired, http.StatusBadRequest, "Le compte de réception est requis."},
	{services.ErrInsufficientBalance, http.StatusBadRequest, "Solde insuffisant pour ce retrait."},
	{services.ErrWithdrawalNotFound, http.StatusNotFound, "Demande de retrait introuvable."},
	{services.ErrInvalidStatus, http.StatusBadRequest, "Statut invalide."},
	{services.ErrInvalidTransition, http.StatusConflict, "Ce changement de statut n'est pas autorisé."},
	{services.ErrWithdrawalFinalized, http.StatusConflict, "Cette demande de retrait est déjà finalisée."},
	{services.ErrNoteRequired, http.StatusBadRequest, "Un motif est requis pour rejeter une demande."},
	{services.ErrTransactionIDRequired, http.StatusBadRequest, "L'identifiant de transaction est requis."},
	{services.ErrConflict, http.StatusConflict, "La demande a été modifiée entre-temps. Veuillez actualiser."},

	{services.ErrNotificationNotFound, http.StatusNotFound, "Notification introuvable."},

	{services.ErrInvalidPayload, http.StatusBadRequest, msgInvalidRequest},
	{services.ErrConsultationNotFound, http.StatusNotFound, "Consultation introuvable."},
	{services.ErrProfessionalNotFound, http.StatusNotFound, "Professionnel introuvable."},
	{services.ErrInvalidSchedule, http.StatusBadRequest, "La date de consultation doit être dans le futur."},
	{services.ErrInvalidMode, http.StatusBadRequest, "Mode de consultation invalide."},
	{services.ErrInvalidConsultationTransition, http.StatusConflict, "Ce changement de statut n'est pas autorisé."},

	{services.ErrTicketNotFound, http.StatusNotFound, "Ticket introuvable."},
	{services.ErrTicketClosed, http.StatusConflict, "Ce ticket est fermé."},
	{services.ErrInvalidTicketStatus, http.StatusBadRequest, "Statut invalide."},
	{services.ErrMessageRequired, http.StatusBadRequest, "Le message est requis."},
}

// errorResponse maps a service error to its HTTP status and French message.
func errorResponse(err error) (int, string) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.status, m.msg
		}
	}
	return http.StatusInternalServerError, msgGeneric
}
