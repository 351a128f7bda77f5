package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/visago/payments/internal/common"
	"github.com/visago/payments/internal/facade"
	"github.com/visago/payments/internal/gateway"
)

// Handler exposes the payment orchestration endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type methodResp struct {
	ID                  string   `json:"id"`
	DisplayName         string   `json:"displayName"`
	SupportedCurrencies []string `json:"supportedCurrencies"`
	SupportsRefunds     bool     `json:"supportsRefunds"`
	TestMode            bool     `json:"testMode"`
}

type initiateReq struct {
	ApplicationID string  `json:"applicationId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
	ReturnURL     string  `json:"returnUrl"`
	CallbackURL   string  `json:"callbackUrl"`
	Track         bool    `json:"track"`
}

type initiateResp struct {
	TransactionID    string `json:"transactionId"`
	PaymentURL       string `json:"paymentUrl"`
	Status           string `json:"status"`
	Gateway          string `json:"gateway"`
	FormattedAmount  string `json:"formattedAmount"`
	TrackingHandleID string `json:"trackingHandleId,omitempty"`
}

// Methods lists the supported payment gateways.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	descriptors := h.Svc.ListGateways()
	out := make([]methodResp, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, methodResp{
			ID:                  string(d.ID),
			DisplayName:         d.DisplayName,
			SupportedCurrencies: d.SupportedCurrencies,
			SupportsRefunds:     d.SupportsRefunds,
			TestMode:            d.TestMode,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"methods": out})
}

// Initiate validates the request and creates a payment intent. When the track
// flag is set, background status polling starts before the response is sent.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	greq := gateway.Request{
		ApplicationID: strings.TrimSpace(req.ApplicationID),
		Amount:        req.Amount,
		Currency:      strings.TrimSpace(req.Currency),
		Method:        strings.TrimSpace(req.PaymentMethod),
		ReturnURL:     strings.TrimSpace(req.ReturnURL),
		CallbackURL:   strings.TrimSpace(req.CallbackURL),
	}
	intent, err := h.Svc.InitiatePayment(r.Context(), greq)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := initiateResp{
		TransactionID:   intent.TransactionID,
		PaymentURL:      intent.PaymentURL,
		Status:          string(intent.Status),
		Gateway:         string(intent.Gateway),
		FormattedAmount: h.Svc.FormatAmount(greq.Amount, greq.Currency),
	}
	if req.Track {
		handleID, err := h.Svc.TrackPayment(intent.TransactionID, intent.Gateway, h.logCallbacks(intent.TransactionID))
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp.TrackingHandleID = handleID
	}
	common.JSON(w, http.StatusCreated, resp)
}

// Status reports the current transaction status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	transactionID := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if transactionID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "transactionId is required", nil)
		return
	}
	status, err := h.Svc.CheckStatus(r.Context(), transactionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, status)
}

// Cancel asks the remote gateway to cancel the transaction.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	transactionID := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if transactionID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "transactionId is required", nil)
		return
	}
	cancelled, err := h.Svc.CancelPayment(r.Context(), transactionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// History lists past payments kept behind the facade.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	records, err := h.Svc.ListHistory(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []facade.PaymentRecord{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"payments": records})
}

// StopTracking cancels a tracking handle. Idempotent: unknown handles return
// 204 as well, matching the silent-cancellation contract.
func (h *Handler) StopTracking(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	handleID := strings.TrimSpace(chi.URLParam(r, "handleId"))
	if handleID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "handleId is required", nil)
		return
	}
	h.Svc.CancelTracking(handleID)
	w.WriteHeader(http.StatusNoContent)
}

// logCallbacks is the server-side tracking sink: status transitions and
// timeouts are logged so operators can follow a transaction without a client
// connection.
func (h *Handler) logCallbacks(transactionID string) TrackCallbacks {
	return TrackCallbacks{
		OnStatus: func(s facade.TransactionStatus) {
			h.Logger.Info().
				Str("transaction_id", transactionID).
				Str("status", string(s.Status)).
				Bool("terminal", s.Status.Terminal()).
				Msg("transaction status update")
		},
		OnTimeout: func() {
			h.Logger.Warn().
				Str("transaction_id", transactionID).
				Msg("transaction tracking timed out")
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONAppError(w, appErr)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unexpected error", nil)
}
