// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/currency"
)

// ErrInvalidPrice is returned when a decimal price cannot be converted.
var ErrInvalidPrice = errors.New("invalid price")

// currencyScale returns the number of minor-unit digits of an ISO 4217 code.
func currencyScale(code string) (currency.Unit, int, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, 0, fmt.Errorf("currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return unit, scale, nil
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(code string) (string, error) {
	unit, _, err := currencyScale(strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	return unit.String(), nil
}

// ParsePrice converts a decimal amount such as "10.5" into minor units of
// the currency. More fractional digits than the currency has are rejected.
func ParsePrice(amount, code string) (int64, error) {
	_, scale, err := currencyScale(code)
	if err != nil {
		return 0, err
	}

	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, amount)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)))
	if !r.IsInt() || !r.Num().IsInt64() {
		return 0, fmt.Errorf("%w: %q has too many decimals for %s", ErrInvalidPrice, amount, code)
	}
	return r.Num().Int64(), nil
}

// FormatPrice renders minor units as "10.00 EUR". Unknown currencies are
// shown as raw minor units.
func FormatPrice(minor int64, code string) string {
	unit, scale, err := currencyScale(code)
	if err != nil {
		return fmt.Sprintf("%d %s", minor, code)
	}

	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if scale == 0 {
		return fmt.Sprintf("%s%d %s", sign, minor, unit)
	}

	pow := int64(1)
	for range scale {
		pow *= 10
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, minor/pow, scale, minor%pow, unit)
}
