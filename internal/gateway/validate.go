package gateway

import (
	"fmt"
	"strings"
)

// Request captures an outbound payment request before any network call.
type Request struct {
	ApplicationID string
	Amount        float64
	Currency      string
	Method        string
	ReturnURL     string
	CallbackURL   string
}

// ValidationError describes why a payment request was rejected locally.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

// ValidateRequest checks a payment request against the catalog. Checks run in a
// fixed order and stop at the first failure so callers always see the same
// message for the same malformed field.
func ValidateRequest(req Request, catalog *Catalog) (Descriptor, error) {
	if strings.TrimSpace(req.ApplicationID) == "" {
		return Descriptor{}, &ValidationError{Field: "applicationId", Reason: "application id is required"}
	}
	if req.Amount <= 0 {
		return Descriptor{}, &ValidationError{Field: "amount", Reason: "amount must be greater than zero"}
	}
	id, ok := ParseID(req.Method)
	if !ok {
		return Descriptor{}, &ValidationError{Field: "paymentMethod", Reason: "unknown payment method"}
	}
	descriptor, ok := catalog.Describe(id)
	if !ok {
		return Descriptor{}, &ValidationError{Field: "paymentMethod", Reason: "unknown payment method"}
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		return Descriptor{}, &ValidationError{Field: "returnUrl", Reason: "return url is required"}
	}
	if !descriptor.Supports(req.Currency) {
		return Descriptor{}, &ValidationError{
			Field:  "currency",
			Reason: fmt.Sprintf("%s does not support %s", descriptor.DisplayName, NormalizeCurrency(req.Currency)),
		}
	}
	return descriptor, nil
}
