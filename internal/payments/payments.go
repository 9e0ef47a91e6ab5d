// Package payments wraps the online payment gateways.
package payments

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned by constructors when credentials are missing.
var ErrNotConfigured = errors.New("payment gateway not configured")

// MinorUnits converts a two-place amount into the smallest currency unit
// (paise, cents) that gateways expect.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
