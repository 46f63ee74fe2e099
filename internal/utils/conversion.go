/*
This file contains common utility functions for converting between wire
representations and SDK math types used by the protocol accounting.
*/

package utils

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountEmpty    = errors.New("amount is empty")
	ErrAmountInvalid  = errors.New("amount is not a valid integer")
	ErrAmountNegative = errors.New("amount is negative")
	ErrRateEmpty      = errors.New("rate is empty")
	ErrRateInvalid    = errors.New("rate is not a valid decimal")
	ErrRateNegative   = errors.New("rate is negative")
)

// ParseAmount converts a decimal integer string into an SDK Int, rejecting
// negative and malformed values.
func ParseAmount(value string) (sdkmath.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return sdkmath.ZeroInt(), ErrAmountEmpty
	}
	amount, ok := sdkmath.NewIntFromString(trimmed)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrAmountInvalid, value)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount, nil
}

// ParseRate converts a decimal string (e.g. "0.7") into an SDK LegacyDec,
// rejecting negative and malformed values.
func ParseRate(value string) (sdkmath.LegacyDec, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return sdkmath.LegacyZeroDec(), ErrRateEmpty
	}
	rate, err := sdkmath.LegacyNewDecFromStr(trimmed)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %q: %w", ErrRateInvalid, value, err)
	}
	if rate.IsNegative() {
		return sdkmath.LegacyZeroDec(), ErrRateNegative
	}
	return rate, nil
}
