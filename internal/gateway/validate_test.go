package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/visago/payments/internal/gateway"
)

func validRequest() gateway.Request {
	return gateway.Request{
		ApplicationID: "APP-1",
		Amount:        100,
		Currency:      "UZS",
		Method:        "uzum",
		ReturnURL:     "https://x/return",
	}
}

func TestValidateRequestSuccess(t *testing.T) {
	catalog := gateway.NewCatalog(false)
	descriptor, err := gateway.ValidateRequest(validRequest(), catalog)
	require.NoError(t, err)
	require.Equal(t, gateway.Uzum, descriptor.ID)
}

func TestValidateRequestOrdering(t *testing.T) {
	catalog := gateway.NewCatalog(false)

	// Every field is invalid; the applicationId failure must win.
	req := gateway.Request{
		ApplicationID: "  ",
		Amount:        -5,
		Currency:      "EUR",
		Method:        "venmo",
		ReturnURL:     "",
	}
	_, err := gateway.ValidateRequest(req, catalog)
	require.Error(t, err)
	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "applicationId", verr.Field)
	require.Equal(t, "application id is required", verr.Reason)
}

func TestValidateRequestAmount(t *testing.T) {
	catalog := gateway.NewCatalog(false)
	req := validRequest()
	req.Amount = 0
	_, err := gateway.ValidateRequest(req, catalog)
	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "amount", verr.Field)
}

func TestValidateRequestUnknownMethod(t *testing.T) {
	catalog := gateway.NewCatalog(false)
	req := validRequest()
	req.Method = "paypal"
	_, err := gateway.ValidateRequest(req, catalog)
	require.EqualError(t, err, "unknown payment method")
}

func TestValidateRequestReturnURL(t *testing.T) {
	catalog := gateway.NewCatalog(false)
	req := validRequest()
	req.ReturnURL = "   "
	_, err := gateway.ValidateRequest(req, catalog)
	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "returnUrl", verr.Field)
}

func TestValidateRequestCurrencyGating(t *testing.T) {
	catalog := gateway.NewCatalog(false)

	req := validRequest()
	req.Currency = "EUR"
	_, err := gateway.ValidateRequest(req, catalog)
	require.EqualError(t, err, "Uzum does not support EUR")

	// Exhaustively verify the gate for every descriptor/currency pair.
	currencies := []string{"UZS", "USD", "EUR", "GBP", "RUB"}
	for _, d := range catalog.List() {
		for _, cur := range currencies {
			r := validRequest()
			r.Method = string(d.ID)
			r.Currency = cur
			_, err := gateway.ValidateRequest(r, catalog)
			if d.Supports(cur) {
				require.NoError(t, err, "%s should accept %s", d.ID, cur)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), d.DisplayName)
				require.Contains(t, err.Error(), cur)
			}
		}
	}
}
