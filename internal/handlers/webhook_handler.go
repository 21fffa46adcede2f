package handlers

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/healthe/healthe-api/internal/services"
)

// Outcomes reported to the webhook metrics besides the service outcomes.
const (
	webhookInvalid      = "invalid"
	webhookUnauthorized = "unauthorized"
	webhookNotFound     = "not_found"
	webhookError        = "error"
)

type payTechIPN struct {
	TypeEvent       string          `json:"type_event"`
	RefCommand      string          `json:"ref_command"`
	ItemPrice       json.Number     `json:"item_price"`
	PaymentMethod   string          `json:"payment_method"`
	CustomField     json.RawMessage `json:"custom_field"`
	APIKeySHA256    string          `json:"api_key_sha256"`
	APISecretSHA256 string          `json:"api_secret_sha256"`
}

type payDunyaIPN struct {
	Data struct {
		Status  string `json:"status"`
		Hash    string `json:"hash"`
		Invoice struct {
			Token       string      `json:"token"`
			TotalAmount json.Number `json:"total_amount"`
		} `json:"invoice"`
		CustomData struct {
			ConsultationID string `json:"consultationId"`
		} `json:"custom_data"`
	} `json:"data"`
}

type paymentCustomData struct {
	ConsultationID string `json:"consultationId"`
}

// PayTechWebhook handles PayTech IPN calls, sent either as JSON or as a
// url-encoded form.
func (h *Handler) PayTechWebhook(c *gin.Context) {
	start := time.Now()
	outcome := webhookError
	defer func() { h.observeWebhook(services.GatewayPayTech, outcome, start) }()

	var ipn payTechIPN
	if c.ContentType() == binding.MIMEPOSTForm {
		customField, _ := json.Marshal(c.PostForm("custom_field"))
		ipn = payTechIPN{
			TypeEvent:       c.PostForm("type_event"),
			RefCommand:      c.PostForm("ref_command"),
			ItemPrice:       json.Number(c.PostForm("item_price")),
			PaymentMethod:   c.PostForm("payment_method"),
			CustomField:     customField,
			APIKeySHA256:    c.PostForm("api_key_sha256"),
			APISecretSHA256: c.PostForm("api_secret_sha256"),
		}
	} else if err := c.ShouldBindJSON(&ipn); err != nil {
		outcome = webhookInvalid
		webhookReply(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if h.webhooks.PayTechAPIKey == "" || h.webhooks.PayTechAPISecret == "" {
		h.logger.Error("paytech webhook credentials not configured")
		webhookReply(c, http.StatusInternalServerError, msgGeneric)
		return
	}
	if !hashMatches(sha256Hex(h.webhooks.PayTechAPIKey), ipn.APIKeySHA256) ||
		!hashMatches(sha256Hex(h.webhooks.PayTechAPISecret), ipn.APISecretSHA256) {
		h.logger.Warn("invalid paytech webhook signature", "ref_command", ipn.RefCommand)
		outcome = webhookUnauthorized
		webhookReply(c, http.StatusUnauthorized, "Signature invalide.")
		return
	}

	amount, err := parseAmount(ipn.ItemPrice)
	if err != nil {
		outcome = webhookInvalid
		webhookReply(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	outcome = h.applyPayment(c, services.PaymentEvent{
		Gateway:        services.GatewayPayTech,
		Reference:      ipn.RefCommand,
		Status:         payTechStatus(ipn.TypeEvent),
		Amount:         amount,
		Method:         ipn.PaymentMethod,
		ConsultationID: decodeCustomField(ipn.CustomField).ConsultationID,
	})
}

// PayDunyaWebhook handles PayDunya IPN calls. The payload carries the
// SHA-512 of the account master key as its signature.
func (h *Handler) PayDunyaWebhook(c *gin.Context) {
	start := time.Now()
	outcome := webhookError
	defer func() { h.observeWebhook(services.GatewayPayDunya, outcome, start) }()

	var ipn payDunyaIPN
	if err := c.ShouldBindJSON(&ipn); err != nil {
		outcome = webhookInvalid
		webhookReply(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if h.webhooks.PayDunyaMasterKey == "" {
		h.logger.Error("paydunya webhook master key not configured")
		webhookReply(c, http.StatusInternalServerError, msgGeneric)
		return
	}
	if !hashMatches(sha512Hex(h.webhooks.PayDunyaMasterKey), ipn.Data.Hash) {
		h.logger.Warn("invalid paydunya webhook signature", "token", ipn.Data.Invoice.Token)
		outcome = webhookUnauthorized
		webhookReply(c, http.StatusUnauthorized, "Signature invalide.")
		return
	}

	amount, err := parseAmount(ipn.Data.Invoice.TotalAmount)
	if err != nil {
		outcome = webhookInvalid
		webhookReply(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	outcome = h.applyPayment(c, services.PaymentEvent{
		Gateway:        services.GatewayPayDunya,
		Reference:      ipn.Data.Invoice.Token,
		Status:         services.PaymentStatus(strings.ToLower(strings.TrimSpace(ipn.Data.Status))),
		Amount:         amount,
		Method:         services.GatewayPayDunya,
		ConsultationID: ipn.Data.CustomData.ConsultationID,
	})
}

// applyPayment runs the event through the payment service, writes the
// response and returns the outcome label for metrics.
func (h *Handler) applyPayment(c *gin.Context, evt services.PaymentEvent) string {
	result, err := h.payments.ProcessPayment(c.Request.Context(), evt)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "outcome": result})
		return string(result)
	case errors.Is(err, services.ErrInvalidPayload):
		webhookReply(c, http.StatusBadRequest, msgInvalidRequest)
		return webhookInvalid
	case errors.Is(err, services.ErrConsultationNotFound):
		webhookReply(c, http.StatusNotFound, "Consultation introuvable.")
		return webhookNotFound
	default:
		h.logger.Error("payment webhook failed", "gateway", evt.Gateway, "reference", evt.Reference, "error", err)
		webhookReply(c, http.StatusInternalServerError, msgGeneric)
		return webhookError
	}
}

func (h *Handler) observeWebhook(gateway, outcome string, start time.Time) {
	if h.metrics != nil {
		h.metrics.ObserveWebhook(gateway, outcome, time.Since(start).Seconds())
	}
}

func webhookReply(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func payTechStatus(typeEvent string) services.PaymentStatus {
	switch strings.TrimSpace(typeEvent) {
	case "sale_complete":
		return services.PaymentCompleted
	case "sale_canceled":
		return services.PaymentCancelled
	}
	return services.PaymentPending
}

// decodeCustomField accepts the custom_field as a JSON object, a JSON
// string holding an object, or a base64 encoding of either.
func decodeCustomField(raw json.RawMessage) paymentCustomData {
	var out paymentCustomData
	if len(raw) == 0 {
		return out
	}
	if json.Unmarshal(raw, &out) == nil && out.ConsultationID != "" {
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return out
	}
	s = strings.TrimSpace(s)
	if json.Unmarshal([]byte(s), &out) == nil {
		return out
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		_ = json.Unmarshal(decoded, &out)
	}
	return out
}

// parseAmount reads gateway amounts sent as "10000", 10000 or 10000.0.
// An empty amount is zero.
func parseAmount(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("invalid amount")
	}
	if f >= 1<<63 {
		return 0, errors.New("amount out of range")
	}
	return int64(math.Round(f)), nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hashMatches(expected, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	return got != "" && subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
