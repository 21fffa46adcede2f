package services

import "errors"

// Sentinel errors returned by the services. Handlers translate them into
// HTTP statuses and user-facing messages.
var (
	ErrInvalidEmail      = errors.New("invalid email")
	ErrWeakPassword      = errors.New("password too weak")
	ErrEmailInUse        = errors.New("email already in use")
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrInvalidUserType   = errors.New("invalid user type")
	ErrForbidden         = errors.New("forbidden")
	ErrNothingToUpdate   = errors.New("nothing to update")
	ErrInvalidIdentifier = errors.New("invalid identifier")

	ErrInvalidAmount         = errors.New("amount must be a positive integer")
	ErrInvalidPayoutMethod   = errors.New("invalid payout method")
	ErrAccountRequired       = errors.New("payout account identifier required")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrWithdrawalNotFound    = errors.New("withdrawal not found")
	ErrInvalidStatus         = errors.New("invalid withdrawal status")
	ErrInvalidTransition     = errors.New("invalid withdrawal transition")
	ErrWithdrawalFinalized   = errors.New("withdrawal already finalized")
	ErrNoteRequired          = errors.New("a note is required to reject a withdrawal")
	ErrTransactionIDRequired = errors.New("a transaction id is required to mark a withdrawal paid")
	ErrConflict              = errors.New("withdrawal was modified concurrently")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrInvalidPayload       = errors.New("invalid payment payload")
	ErrConsultationNotFound = errors.New("consultation not found")
)

var (
	ErrProfessionalNotFound          = errors.New("professional not found")
	ErrInvalidSchedule               = errors.New("consultation must be scheduled in the future")
	ErrInvalidMode                   = errors.New("invalid consultation mode")
	ErrInvalidConsultationTransition = errors.New("invalid consultation status change")

	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketClosed        = errors.New("ticket is closed")
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
	ErrMessageRequired     = errors.New("message required")
)
