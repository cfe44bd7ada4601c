package projections

import (
	"fmt"
	"strings"
)

// FormatMoney renders cents as a currency amount, e.g. "NZ$180.00".
func FormatMoney(cents int, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	symbol := "$"
	switch strings.ToUpper(currency) {
	case "NZD":
		symbol = "NZ$"
	case "AUD":
		symbol = "A$"
	case "GBP":
		symbol = "£"
	case "EUR":
		symbol = "€"
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, cents/100, cents%100)
}
