package domain

import (
	"errors"
	"strings"
	"time"
)

type Theme string

const (
	ThemeMinimal  Theme = "theme-1"
	ThemeDark     Theme = "theme-2"
	ThemeColorful Theme = "theme-3"

	DefaultTheme = ThemeMinimal
)

// ErrInvalidTheme is returned when a value is not one of the known themes.
var ErrInvalidTheme = errors.New("invalid theme")

// Themes lists the known themes in display order.
func Themes() []Theme {
	return []Theme{ThemeMinimal, ThemeDark, ThemeColorful}
}

// ParseTheme validates a raw theme identifier.
func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.TrimSpace(raw)) {
	case ThemeMinimal:
		return ThemeMinimal, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeColorful:
		return ThemeColorful, nil
	default:
		return "", ErrInvalidTheme
	}
}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	_, err := ParseTheme(string(t))
	return err == nil
}

// CategoryAll is the filter value meaning "no category restriction".
const CategoryAll = "all"

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

type FetchStatus string

const (
	FetchIdle      FetchStatus = "idle"
	FetchPending   FetchStatus = "pending"
	FetchSucceeded FetchStatus = "succeeded"
	FetchFailed    FetchStatus = "failed"
)

// CatalogSnapshot is a point-in-time copy of the product store.
type CatalogSnapshot struct {
	Status    FetchStatus `json:"status"`
	Products  []Product   `json:"products"`
	Err       string      `json:"error,omitempty"`
	FetchedAt time.Time   `json:"fetchedAt,omitempty"`
}

// Loading reports whether a fetch is in flight.
func (s CatalogSnapshot) Loading() bool {
	return s.Status == FetchPending
}

// Error returns the failure message of the last fetch, if it failed.
func (s CatalogSnapshot) Error() string {
	if s.Status != FetchFailed {
		return ""
	}
	return s.Err
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
