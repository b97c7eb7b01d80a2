package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrCityEmpty is returned when the city query is empty or whitespace-only after trim.
	ErrCityEmpty = errors.New("city is required")
	// ErrCityTooLong is returned when the city query exceeds the maximum length.
	ErrCityTooLong = errors.New("city too long")
	// ErrCityInvalidChars is returned when the city query contains disallowed characters.
	ErrCityInvalidChars = errors.New("city contains invalid characters")
	// ErrCityCountry is returned when the part after the comma is not a 2-letter country code.
	ErrCityCountry = errors.New("city country code must be two letters")
	// ErrInvalidUnits is returned for any unit system other than metric. The screen
	// renders °C and km/h and converts wind from m/s.
	ErrInvalidUnits = errors.New("units must be metric")
)

// MaxCityLength bounds the configured city query in runes.
const MaxCityLength = 100

// ValidateCity checks a provider city query such as "Cascavel,BR" or "São Paulo".
// It trims the input, enforces MaxCityLength and restricts characters to letters (Unicode),
// digits, space, hyphen, apostrophe and period, with at most one comma followed by a
// two-letter country code. Returns the trimmed query.
func ValidateCity(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrCityEmpty
	}
	if len([]rune(s)) > MaxCityLength {
		return "", ErrCityTooLong
	}

	name, country, hasCountry := strings.Cut(s, ",")
	if strings.TrimSpace(name) == "" {
		return "", ErrCityEmpty
	}
	for _, c := range name {
		if !isAllowedCityRune(c) {
			return "", fmt.Errorf("%w: %q", ErrCityInvalidChars, c)
		}
	}
	if hasCountry {
		country = strings.TrimSpace(country)
		if len(country) != 2 || !isASCIILetter(rune(country[0])) || !isASCIILetter(rune(country[1])) {
			return "", ErrCityCountry
		}
	}
	return s, nil
}

// ValidateUnits checks the provider unit system and returns it lowercased.
// Only metric is accepted.
func ValidateUnits(units string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(units))
	if u == "metric" {
		return u, nil
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidUnits, units)
}

func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', '-', '\'', '.':
		return true
	}
	return false
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
