// Package amount converts between user-entered decimal strings and the
// fixed-point integers the gold program stores. GOLD and USDC both use six
// decimals.
package amount

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/egaotan/solana-gold/errs"
	"github.com/shopspring/decimal"
)

const (
	Decimals    = 6
	SolDecimals = 9
)

// MaxLen bounds the raw entry; u64 needs at most 20 integer digits.
const MaxLen = 48

// Plain decimal notation only, no exponent.
var plain = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

var maxU64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ToOnChain scales a positive decimal string by 10^6. Digits past the sixth
// fractional place are truncated; a value that truncates to zero is rejected.
func ToOnChain(field, s string) (uint64, error) {
	n, err := scale(field, s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errs.InvalidInput(field, "amount must be positive")
	}
	return n, nil
}

// Parse is ToOnChain without the positivity requirement. Zero is accepted.
func Parse(field, s string) (uint64, error) {
	return scale(field, s)
}

func scale(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errs.InvalidInput(field, "amount is required")
	}
	if len(s) > MaxLen {
		return 0, errs.InvalidInput(field, "amount is too long")
	}
	if strings.HasPrefix(s, "-") {
		return 0, errs.InvalidInput(field, "amount must not be negative")
	}
	if !plain.MatchString(s) {
		return 0, errs.InvalidInput(field, "amount is not a number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errs.InvalidInput(field, "amount is not a number")
	}
	scaled := d.Shift(Decimals).Truncate(0)
	if scaled.GreaterThan(maxU64) {
		return 0, errs.InvalidInput(field, "amount is too large")
	}
	return scaled.BigInt().Uint64(), nil
}

// ToDisplay is the exact inverse of the scaling, trailing zeros dropped.
func ToDisplay(n uint64) string {
	return Decimal(n).String()
}

func Decimal(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), -Decimals)
}

func LamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -SolDecimals)
}

// PriceFromCents renders a usd cents price as dollars.
func PriceFromCents(cents uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(cents), -2).StringFixed(2)
}
