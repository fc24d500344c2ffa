package store

import (
	"context"
	"errors"
	"strings"
)

// KeyTheme is the preference key holding the visitor's theme.
const KeyTheme = "theme"

// ErrEmptyVisitor is returned when a preference call has no visitor id.
var ErrEmptyVisitor = errors.New("visitor id is required")

// PreferenceStore persists small per-visitor string preferences.
// Implementations report a missing key as ok=false with a nil error.
type PreferenceStore interface {
	Get(ctx context.Context, visitorID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, visitorID, key, value string) error
}

func normalizeKey(visitorID, key string) (string, string, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return "", "", ErrEmptyVisitor
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", errors.New("preference key is required")
	}
	return visitorID, key, nil
}
