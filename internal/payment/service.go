package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/visago/payments/internal/common"
	"github.com/visago/payments/internal/facade"
	"github.com/visago/payments/internal/gateway"
	"github.com/visago/payments/internal/obs"
	"github.com/visago/payments/internal/tracker"
)

// Service is the orchestration surface over the payment domain: it validates
// requests against the gateway catalog, talks to the backend facade and owns
// transaction tracking. Status reads go through StatusReader so a cache can sit
// in front of the facade; the tracker always polls the facade directly.
type Service struct {
	Catalog      *gateway.Catalog
	Facade       facade.Client
	Tracker      *tracker.Tracker
	StatusReader facade.StatusSource
	Logger       zerolog.Logger
}

// TrackCallbacks re-exports the tracker callback pair for callers that only
// import the payment package.
type TrackCallbacks = tracker.Callbacks

// ListGateways returns the fixed gateway catalog in stable order.
func (s *Service) ListGateways() []gateway.Descriptor {
	return s.Catalog.List()
}

// Validate checks a payment request locally without any network call. A nil
// return means the request would be accepted for initiation.
func (s *Service) Validate(req gateway.Request) error {
	_, err := gateway.ValidateRequest(req, s.Catalog)
	return err
}

// FormatAmount renders an amount for display using the gateway symbol table.
func (s *Service) FormatAmount(amount float64, currency string) string {
	return gateway.FormatAmount(amount, currency)
}

// InitiatePayment validates the request and creates a payment intent through
// the facade. Errors are always *common.AppError with one of the
// VALIDATION_FAILED, GATEWAY_UNREACHABLE, GATEWAY_REJECTED or INTERNAL codes.
func (s *Service) InitiatePayment(ctx context.Context, req gateway.Request) (facade.PaymentIntent, error) {
	var zero facade.PaymentIntent
	if s == nil || s.Catalog == nil || s.Facade == nil {
		return zero, common.NewAppError(common.CodeInternal, "payment service not configured", http.StatusInternalServerError, nil)
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.InitiatePayment")
	defer span.End()

	start := time.Now()
	result := "error"
	gatewayLabel := "unknown"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.gateway", gatewayLabel),
			attribute.String("payment.initiate.result", result),
			attribute.Float64("payment.initiate.duration_ms", obs.DurationMillis(time.Since(start))),
		)
		if obs.PaymentInitiateTotal != nil {
			obs.PaymentInitiateTotal.WithLabelValues(gatewayLabel, result).Inc()
		}
	}()

	descriptor, err := gateway.ValidateRequest(req, s.Catalog)
	if err != nil {
		result = "validation_failed"
		var verr *gateway.ValidationError
		details := any(nil)
		if errors.As(err, &verr) {
			details = map[string]string{"field": verr.Field}
		}
		return zero, &common.AppError{
			Code:       common.CodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    details,
		}
	}
	gatewayLabel = string(descriptor.ID)

	intent, err := s.Facade.Initiate(ctx, req)
	if err != nil {
		var appErr *common.AppError
		appErr, result = s.mapFacadeError(err)
		return zero, appErr
	}
	result = "success"
	s.Logger.Info().
		Str("gateway", gatewayLabel).
		Str("transaction_id", intent.TransactionID).
		Str("application_id", req.ApplicationID).
		Msg("payment initiated")
	return intent, nil
}

// CheckStatus returns the current transaction snapshot, through the status
// cache when one is configured.
func (s *Service) CheckStatus(ctx context.Context, transactionID string) (facade.TransactionStatus, error) {
	reader := s.StatusReader
	if reader == nil {
		reader = s.Facade
	}
	status, err := reader.CheckStatus(ctx, transactionID)
	if err != nil {
		appErr, _ := s.mapFacadeError(err)
		return facade.TransactionStatus{}, appErr
	}
	return status, nil
}

// CancelPayment asks the facade to cancel the transaction remotely. This is
// distinct from CancelTracking, which only stops local polling.
func (s *Service) CancelPayment(ctx context.Context, transactionID string) (bool, error) {
	ok, err := s.Facade.Cancel(ctx, transactionID)
	if err != nil {
		appErr, _ := s.mapFacadeError(err)
		return false, appErr
	}
	return ok, nil
}

// ListHistory returns the payment history kept behind the facade.
func (s *Service) ListHistory(ctx context.Context) ([]facade.PaymentRecord, error) {
	records, err := s.Facade.ListHistory(ctx)
	if err != nil {
		appErr, _ := s.mapFacadeError(err)
		return nil, appErr
	}
	return records, nil
}

// TrackPayment starts background polling for the transaction and returns the
// tracking handle id immediately.
func (s *Service) TrackPayment(transactionID string, gw gateway.ID, cb TrackCallbacks) (string, error) {
	if s == nil || s.Tracker == nil {
		return "", common.NewAppError(common.CodeInternal, "tracking not configured", http.StatusInternalServerError, nil)
	}
	handleID, err := s.Tracker.Track(transactionID, gw, cb)
	if err != nil {
		return "", common.NewAppError(common.CodeValidationFailed, err.Error(), http.StatusBadRequest, err)
	}
	return handleID, nil
}

// CancelTracking stops polling for a handle without any callback. Unknown or
// finished handles are ignored.
func (s *Service) CancelTracking(handleID string) {
	if s == nil || s.Tracker == nil {
		return
	}
	s.Tracker.Cancel(handleID)
}

// CancelAllTracking stops every active polling loop. Used at shutdown.
func (s *Service) CancelAllTracking() {
	if s == nil || s.Tracker == nil {
		return
	}
	s.Tracker.CancelAll()
}

// ActiveTracking reports the number of live tracking handles.
func (s *Service) ActiveTracking() int {
	if s == nil || s.Tracker == nil {
		return 0
	}
	return s.Tracker.Active()
}

// mapFacadeError normalises facade failures into AppErrors. The second return
// value is the metric result label for the operation.
func (s *Service) mapFacadeError(err error) (*common.AppError, string) {
	var rejection *facade.RejectionError
	switch {
	case errors.Is(err, facade.ErrTransactionNotFound):
		return common.NewAppError(common.CodeNotFound, "transaction not found", http.StatusNotFound, err), "not_found"
	case errors.As(err, &rejection):
		appErr := &common.AppError{
			Code:       common.CodeGatewayRejected,
			Message:    rejection.Message,
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
			Details:    map[string]string{"providerCode": rejection.Code},
		}
		return appErr, "rejected"
	case errors.Is(err, facade.ErrUnreachable), errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError(common.CodeGatewayUnreachable, "payment gateway is unreachable", http.StatusBadGateway, err), "unreachable"
	default:
		return common.NewAppError(common.CodeInternal, "payment operation failed", http.StatusInternalServerError, err), "error"
	}
}
