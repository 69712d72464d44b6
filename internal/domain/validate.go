package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError is the boundary-check failure the rest of the core
// surfaces as a rejected operation; opportunities that fail validation are
// skipped and nothing is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s: %s", e.Field, e.Reason)
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidateTicker checks a venue-native market identifier.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return &ValidationError{"ticker", "must match ^[A-Za-z0-9_-]{1,50}$"}
	}
	return nil
}

// ValidatePrice checks a decimal price is in (0,1) and, if bounds are
// supplied, within [minPrice, maxPrice].
func ValidatePrice(price float64, minPrice, maxPrice float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &ValidationError{"price", "must be finite"}
	}
	if price <= 0 || price >= 1 {
		return &ValidationError{"price", "must be in (0,1)"}
	}
	if maxPrice > 0 && (price < minPrice || price > maxPrice) {
		return &ValidationError{"price", fmt.Sprintf("must be in [%.4f,%.4f]", minPrice, maxPrice)}
	}
	return nil
}

// ValidateKalshiPriceCents checks venue A's integer-cent convention.
func ValidateKalshiPriceCents(cents int) error {
	if cents < 1 || cents > 99 {
		return &ValidationError{"price_cents", "must be in [1,99]"}
	}
	return nil
}

// ValidateQuantity checks an integer contract count.
func ValidateQuantity(qty int64) error {
	if qty < 1 || qty > 100000 {
		return &ValidationError{"quantity", "must be in [1,100000]"}
	}
	return nil
}

// ValidateSizeUSD checks a position size in quote-currency units.
func ValidateSizeUSD(size decimal.Decimal) error {
	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(1000000)
	if size.LessThan(min) || size.GreaterThan(max) {
		return &ValidationError{"size_usd", "must be in [10,1000000]"}
	}
	return nil
}

// ValidateSide checks a YES/NO side string.
func ValidateSide(side Side) error {
	if side != SideYes && side != SideNo {
		return &ValidationError{"side", "must be yes or no"}
	}
	return nil
}

// OrderType is the venue order style the Executor requests.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// ValidateOrderType checks an order style.
func ValidateOrderType(t OrderType) error {
	if t != OrderTypeLimit && t != OrderTypeMarket {
		return &ValidationError{"order_type", "must be limit or market"}
	}
	return nil
}

// SanitizeString strips null bytes and other control characters from
// operator- or venue-supplied free text before it is logged or persisted.
func SanitizeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 0 || (r < 0x20 && r != '\t' && r != '\n') {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateMarketID checks a non-empty native market identifier.
func ValidateMarketID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{"market_id", "must not be empty"}
	}
	return nil
}

// ValidatePercentage checks a fraction is in [0,1].
func ValidatePercentage(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &ValidationError{"percentage", "must be in [0,1]"}
	}
	return nil
}
