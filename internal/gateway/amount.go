package gateway

import "fmt"

// currencySymbols maps known currency codes to display symbols. Unknown codes
// fall back to printing the raw code in place of a symbol.
var currencySymbols = map[string]string{
	"UZS": "so'm",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"RUB": "₽",
}

// FormatAmount renders an amount for display. Output is deterministic and
// locale-free: "<symbol> <amount with 2 decimals>".
func FormatAmount(amount float64, currency string) string {
	code := NormalizeCurrency(currency)
	symbol, ok := currencySymbols[code]
	if !ok || symbol == "" {
		symbol = code
	}
	return fmt.Sprintf("%s %.2f", symbol, amount)
}
