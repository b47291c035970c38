// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// meter-reading form extraction, decimal fields, and input sanitization.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/core"
)

// Form field names for the calculator. Custom fields are keyed by id with a
// prefix: custom_<id> for meter readings, fee_<id> for manual fee amounts.
const (
	fieldReadingElectricity = "reading_electricity"
	fieldReadingWater       = "reading_water"
	fieldReadingGas         = "reading_gas"
	customReadingPrefix     = "custom_"
	manualFeePrefix         = "fee_"
)

// ParseEnteredValues extracts the calculator form into the shape the cost
// engine expects. Values stay as raw strings; parsing and clamping happen in
// the engine so preview and commit agree on every edge case.
func ParseEnteredValues(form url.Values) core.EnteredValues {
	in := core.EnteredValues{
		Electricity:    sanitizeInput(form.Get(fieldReadingElectricity)),
		Water:          sanitizeInput(form.Get(fieldReadingWater)),
		Gas:            sanitizeInput(form.Get(fieldReadingGas)),
		CustomReadings: make(map[string]string),
		ManualFees:     make(map[string]string),
	}

	for key := range form {
		switch {
		case strings.HasPrefix(key, customReadingPrefix):
			id := strings.TrimPrefix(key, customReadingPrefix)
			in.CustomReadings[id] = sanitizeInput(form.Get(key))
		case strings.HasPrefix(key, manualFeePrefix):
			id := strings.TrimPrefix(key, manualFeePrefix)
			in.ManualFees[id] = sanitizeInput(form.Get(key))
		}
	}

	return in
}

// decimalField parses a required decimal form value, accepting the comma
// decimal separator used throughout the UI.
func decimalField(form url.Values, key string) (decimal.Decimal, error) {
	raw := sanitizeInput(form.Get(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, ok := core.ParseReading(raw)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid number for %s: %q", key, raw)
	}
	return d, nil
}

// idField parses a required integer id form value.
func idField(form url.Values, key string) (int64, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
