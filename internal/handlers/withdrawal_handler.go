package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
)

const defaultTransactionLimit = 50

func (h *Handler) professionalID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(currentUserID(c))
	if err != nil {
		h.fail(c, services.ErrInvalidIdentifier)
		return primitive.NilObjectID, false
	}
	return id, true
}

// RequestWithdrawal lets a professional ask for a payout of their balance.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req struct {
		Amount            int64               `json:"amount" binding:"required"`
		Method            models.PayoutMethod `json:"method" binding:"required"`
		AccountIdentifier string              `json:"accountIdentifier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	proID, ok := h.professionalID(c)
	if !ok {
		return
	}

	w, err := h.withdrawals.Request(c.Request.Context(), services.WithdrawalRequest{
		ProfessionalID:    proID,
		ProfessionalName:  h.currentSession(c).FullName,
		Amount:            req.Amount,
		Method:            req.Method,
		AccountIdentifier: req.AccountIdentifier,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) MyWithdrawals(c *gin.Context) {
	proID, ok := h.professionalID(c)
	if !ok {
		return
	}
	list, err := h.withdrawals.ListForProfessional(c.Request.Context(), proID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CancelWithdrawal(c *gin.Context) {
	proID, ok := h.professionalID(c)
	if !ok {
		return
	}
	w, err := h.withdrawals.Cancel(c.Request.Context(), c.Param("id"), proID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) RevenueBalance(c *gin.Context) {
	proID, ok := h.professionalID(c)
	if !ok {
		return
	}
	balance, err := h.revenue.Balance(c.Request.Context(), proID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *Handler) RevenueTransactions(c *gin.Context) {
	proID, ok := h.professionalID(c)
	if !ok {
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultTransactionLimit)), 10, 64)
	if err != nil || limit <= 0 {
		limit = defaultTransactionLimit
	}
	txs, err := h.revenue.Transactions(c.Request.Context(), proID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// --- admin ---

func (h *Handler) ListWithdrawals(c *gin.Context) {
	list, err := h.withdrawals.List(c.Request.Context(), models.WithdrawalStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetWithdrawal(c *gin.Context) {
	w, err := h.withdrawals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// UpdateWithdrawalStatus is the admin entry point to the withdrawal
// lifecycle: approve, reject (with a note), mark paid (with a transaction
// id) or cancel.
func (h *Handler) UpdateWithdrawalStatus(c *gin.Context) {
	var req struct {
		Status        models.WithdrawalStatus `json:"status" binding:"required"`
		Note          string                  `json:"note"`
		TransactionID string                  `json:"transactionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	w, err := h.withdrawals.UpdateStatus(c.Request.Context(), services.StatusChange{
		WithdrawalID:  c.Param("id"),
		Target:        req.Status,
		ActorID:       currentUserID(c),
		Note:          req.Note,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
