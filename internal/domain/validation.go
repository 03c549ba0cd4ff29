package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountScale is the number of decimal places a monetary amount may carry.
const amountScale = 2

// PlaceholderOwner replaces a blank owner name under the lenient policy.
const PlaceholderOwner = "Unnamed Account"

// ConstructionPolicy decides how NewAccount treats questionable input.
type ConstructionPolicy string

const (
	// PolicyLenient normalizes a blank owner and a negative opening balance
	PolicyLenient ConstructionPolicy = "lenient"

	// PolicyStrict rejects them
	PolicyStrict ConstructionPolicy = "strict"
)

// ParseConstructionPolicy maps a configuration value to a policy.
func ParseConstructionPolicy(value string) (ConstructionPolicy, error) {
	switch ConstructionPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown construction policy %q", value)
	}
}

// ValidateAmount checks that amount is strictly positive and carries no more
// than two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !hasValidScale(amount) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountScale)
	}
	return nil
}

// ParseAmount parses a decimal string such as "100.50" and validates it.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: value is required", ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ParseOpeningBalance parses an opening balance. Unlike ParseAmount it
// accepts zero and, for the lenient policy to clamp, negative values.
func ParseOpeningBalance(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !hasValidScale(amount) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountScale)
	}
	return amount, nil
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(amountScale)
}

func hasValidScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(amountScale))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// normalizeOwner applies policy to a raw owner name.
func normalizeOwner(owner string, policy ConstructionPolicy) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner != "" {
		return owner, nil
	}
	if policy == PolicyStrict {
		return "", ErrInvalidOwner
	}
	return PlaceholderOwner, nil
}

// normalizeOpeningBalance applies policy to a raw opening balance.
func normalizeOpeningBalance(opening decimal.Decimal, policy ConstructionPolicy) (decimal.Decimal, error) {
	if !hasValidScale(opening) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountScale)
	}
	if !opening.IsNegative() {
		return opening, nil
	}
	if policy == PolicyStrict {
		return decimal.Zero, ErrNegativeOpeningBalance
	}
	return decimal.Zero, nil
}
