package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/visago/payments/internal/gateway"
)

func TestCatalogDescribe(t *testing.T) {
	catalog := gateway.NewCatalog(false)

	uzum, ok := catalog.Describe(gateway.Uzum)
	require.True(t, ok)
	require.Equal(t, "Uzum", uzum.DisplayName)
	require.Equal(t, []string{"UZS"}, uzum.SupportedCurrencies)
	require.False(t, uzum.SupportsRefunds)

	_, ok = catalog.Describe(gateway.ID("paypal"))
	require.False(t, ok)
}

func TestCatalogListStableOrder(t *testing.T) {
	catalog := gateway.NewCatalog(true)

	first := catalog.List()
	second := catalog.List()
	require.Len(t, first, 4)
	require.Equal(t, first, second)

	ids := make([]gateway.ID, 0, len(first))
	for _, d := range first {
		require.NotEmpty(t, d.SupportedCurrencies, "descriptor %s must declare currencies", d.ID)
		require.True(t, d.TestMode)
		ids = append(ids, d.ID)
	}
	require.Equal(t, []gateway.ID{gateway.Payme, gateway.Click, gateway.Uzum, gateway.Stripe}, ids)
}

func TestParseID(t *testing.T) {
	id, ok := gateway.ParseID("  Click ")
	require.True(t, ok)
	require.Equal(t, gateway.Click, id)

	_, ok = gateway.ParseID("venmo")
	require.False(t, ok)

	_, ok = gateway.ParseID("")
	require.False(t, ok)
}

func TestDescriptorSupports(t *testing.T) {
	catalog := gateway.NewCatalog(false)
	stripe, ok := catalog.Describe(gateway.Stripe)
	require.True(t, ok)
	require.True(t, stripe.Supports("eur"))
	require.True(t, stripe.Supports(" USD "))
	require.False(t, stripe.Supports("UZS"))
}
