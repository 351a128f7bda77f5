package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/visago/payments/internal/gateway"
	"github.com/visago/payments/internal/resilience"
)

// ClientConfig controls HTTPClient construction.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	Breaker           *resilience.Breaker
	HistoryMaxRetries int
	Logger            zerolog.Logger
}

// HTTPClient implements Client over the backend payment facade's JSON API.
type HTTPClient struct {
	baseURL  string
	http     resilience.HTTPClient
	history  resilience.HTTPClient
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewHTTPClient builds a facade client. Initiate, status and cancel calls use a
// single attempt (their retry policy belongs to the caller); history reads
// retry with jittered backoff.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
	historyRetries := cfg.HistoryMaxRetries
	if historyRetries <= 0 {
		historyRetries = 1
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: resilience.HTTPClient{
			Client:      base,
			Breaker:     cfg.Breaker,
			MaxAttempts: 1,
			Timeout:     timeout,
		},
		history: resilience.HTTPClient{
			Client:      base,
			Breaker:     cfg.Breaker,
			MaxAttempts: historyRetries,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     timeout,
		},
		logger:   cfg.Logger.With().Str("component", "facade_client").Logger(),
		validate: validator.New(),
	}
}

type initiateRequest struct {
	ApplicationID string  `json:"applicationId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
	ReturnURL     string  `json:"returnUrl"`
	CallbackURL   string  `json:"callbackUrl,omitempty"`
}

// Initiate opens a payment intent with the chosen provider and returns the
// redirect handle assigned by the facade.
func (c *HTTPClient) Initiate(ctx context.Context, req gateway.Request) (PaymentIntent, error) {
	ctx, span := otel.Tracer("facade.Client").Start(ctx, "Facade.Initiate")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.gateway", req.Method),
		attribute.String("payment.currency", gateway.NormalizeCurrency(req.Currency)),
	)

	body := initiateRequest{
		ApplicationID: req.ApplicationID,
		Amount:        req.Amount,
		Currency:      gateway.NormalizeCurrency(req.Currency),
		PaymentMethod: req.Method,
		ReturnURL:     req.ReturnURL,
		CallbackURL:   req.CallbackURL,
	}
	var intent PaymentIntent
	if err := c.call(ctx, c.http, http.MethodPost, "/payments/initiate", body, &intent); err != nil {
		span.RecordError(err)
		return PaymentIntent{}, err
	}
	if err := c.validate.Struct(intent); err != nil {
		return PaymentIntent{}, fmt.Errorf("facade: malformed initiate response: %w", err)
	}
	if intent.Status == "" {
		intent.Status = StatusPending
	}
	if intent.Gateway == "" {
		if id, ok := gateway.ParseID(req.Method); ok {
			intent.Gateway = id
		}
	}
	c.logger.Debug().Str("transaction_id", intent.TransactionID).Str("gateway", string(intent.Gateway)).Msg("intent created")
	return intent, nil
}

// CheckStatus fetches a fresh snapshot of the remote transaction.
func (c *HTTPClient) CheckStatus(ctx context.Context, transactionID string) (TransactionStatus, error) {
	var status TransactionStatus
	path := fmt.Sprintf("/payments/%s/status", transactionID)
	if err := c.call(ctx, c.http, http.MethodGet, path, nil, &status); err != nil {
		return TransactionStatus{}, err
	}
	if err := c.validate.Struct(status); err != nil {
		return TransactionStatus{}, fmt.Errorf("facade: malformed status response: %w", err)
	}
	if !status.Status.Known() {
		return TransactionStatus{}, fmt.Errorf("facade: unknown transaction status %q", status.Status)
	}
	return status, nil
}

// Cancel asks the facade to abort the transaction. The result reports whether
// the provider accepted the cancellation.
func (c *HTTPClient) Cancel(ctx context.Context, transactionID string) (bool, error) {
	var out struct {
		Cancelled bool `json:"cancelled"`
	}
	path := fmt.Sprintf("/payments/%s/cancel", transactionID)
	if err := c.call(ctx, c.http, http.MethodPost, path, nil, &out); err != nil {
		return false, err
	}
	return out.Cancelled, nil
}

// ListHistory returns the payment records the facade keeps for this applicant.
func (c *HTTPClient) ListHistory(ctx context.Context) ([]PaymentRecord, error) {
	var out struct {
		Payments []PaymentRecord `json:"payments"`
	}
	if err := c.call(ctx, c.history, http.MethodGet, "/payments/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Payments, nil
}

func (c *HTTPClient) call(ctx context.Context, client resilience.HTTPClient, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("facade: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("facade: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrTransactionNotFound
	}
	if resp.StatusCode >= 400 {
		return c.decodeRejection(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("facade: decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) decodeRejection(resp *http.Response) error {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error.Message == "" {
		return &RejectionError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: resp.Status}
	}
	return &RejectionError{Code: payload.Error.Code, Message: payload.Error.Message}
}
