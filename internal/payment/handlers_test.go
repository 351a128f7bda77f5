package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/visago/payments/internal/facade"
)

func newTestRouter(t *testing.T, f *stubFacade) (*chi.Mux, *Service) {
	t.Helper()
	svc := newTestService(t, f)
	h := &Handler{Svc: svc, Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/methods", h.Methods)
		r.Post("/", h.Initiate)
		r.Get("/history", h.History)
		r.Get("/{transactionId}/status", h.Status)
		r.Post("/{transactionId}/cancel", h.Cancel)
		r.Delete("/tracking/{handleId}", h.StopTracking)
	})
	return r, svc
}

func TestMethodsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/methods", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Methods []methodResp `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Methods, 4)
	require.Equal(t, "payme", body.Methods[0].ID)
	require.Equal(t, "Payme", body.Methods[0].DisplayName)
	require.Equal(t, "stripe", body.Methods[3].ID)
	require.True(t, body.Methods[0].TestMode)
}

func TestInitiateEndpointWithTracking(t *testing.T) {
	router, svc := newTestRouter(t, &stubFacade{})

	payload := `{"applicationId":"app-1","amount":50,"currency":"USD","paymentMethod":"stripe","returnUrl":"https://app.example.com/return","track":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body initiateResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "tx-100", body.TransactionID)
	require.Equal(t, "https://pay.example.com/tx-100", body.PaymentURL)
	require.Equal(t, "pending", body.Status)
	require.Equal(t, "$ 50.00", body.FormattedAmount)
	require.NotEmpty(t, body.TrackingHandleID)
	require.Equal(t, 1, svc.ActiveTracking())
}

func TestInitiateEndpointValidationError(t *testing.T) {
	f := &stubFacade{}
	router, _ := newTestRouter(t, f)

	payload := `{"applicationId":"app-1","amount":50,"currency":"EUR","paymentMethod":"uzum","returnUrl":"https://app.example.com/return"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(payload)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	require.Equal(t, "Uzum does not support EUR", body.Error.Message)
	require.Equal(t, 0, f.initiated)
}

func TestInitiateEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{status: facade.StatusProcessing})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/tx-7/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body facade.TransactionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "tx-7", body.TransactionID)
	require.Equal(t, facade.StatusProcessing, body.Status)
}

func TestStatusEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{statusErr: facade.ErrTransactionNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/tx-missing/status", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{cancelResult: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/tx-7/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"cancelled":true}`, rec.Body.String())
}

func TestHistoryEndpointAlwaysReturnsArray(t *testing.T) {
	router, _ := newTestRouter(t, &stubFacade{history: nil})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"payments":[]}`, rec.Body.String())
}

func TestStopTrackingEndpointIsIdempotent(t *testing.T) {
	router, svc := newTestRouter(t, &stubFacade{})

	handleID, err := svc.TrackPayment("tx-100", "payme", TrackCallbacks{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/payments/tracking/"+handleID, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	require.Equal(t, 0, svc.ActiveTracking())
}
