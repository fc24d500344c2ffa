package app

import (
	"context"
	"sync"
	"time"

	"storefront/internal/util"
	"storefront/pkg/domain"
	"storefront/pkg/store"
)

const (
	maxCachedVisitors = 10000
	// themeCacheTTL bounds how long a replica serves a theme without
	// re-reading the shared preference store.
	themeCacheTTL = 5 * time.Second
)

type cachedTheme struct {
	theme   domain.Theme
	fetched time.Time
	// unsynced marks a theme whose last write to the preference store failed.
	unsynced bool
}

// ThemeStore tracks the active theme per visitor. It is a read-through cache
// over the preference store: entries older than the TTL are re-read, so a
// switch made on another replica sharing the store shows up within the TTL.
// When the store is unreachable the last known theme keeps being served.
type ThemeStore struct {
	prefs store.PreferenceStore
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	active map[string]cachedTheme
}

func NewThemeStore(prefs store.PreferenceStore) *ThemeStore {
	return &ThemeStore{
		prefs:  prefs,
		ttl:    themeCacheTTL,
		now:    time.Now,
		active: make(map[string]cachedTheme),
	}
}

// Theme returns the visitor's active theme. Fresh cached values are served
// directly; otherwise the persisted value is read. Absent or invalid values
// yield the default; a failed read falls back to the cached value, if any.
func (s *ThemeStore) Theme(ctx context.Context, visitorID string) domain.Theme {
	s.mu.RLock()
	entry, cached := s.active[visitorID]
	s.mu.RUnlock()
	if cached && s.now().Sub(entry.fetched) < s.ttl {
		return entry.theme
	}

	logger := util.LoggerFromContext(ctx)
	raw, found, err := s.prefs.Get(ctx, visitorID, store.KeyTheme)
	if err != nil {
		logger.Warn("theme preference read failed", "visitor_id", visitorID, "err", err)
		if cached {
			return entry.theme
		}
		return domain.DefaultTheme
	}

	next := cachedTheme{theme: domain.DefaultTheme, fetched: s.now()}
	switch {
	case found:
		parsed, err := domain.ParseTheme(raw)
		if err != nil {
			logger.Warn("ignoring invalid stored theme", "visitor_id", visitorID, "value", raw)
		} else {
			next.theme = parsed
		}
	case cached && entry.unsynced:
		// Nothing was persisted yet; the switch made during the outage stands.
		next.theme = entry.theme
		next.unsynced = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.active[visitorID]; ok && current.fetched.After(entry.fetched) && s.now().Sub(current.fetched) < s.ttl {
		return current.theme
	}
	s.remember(visitorID, next)
	return next.theme
}

// SetTheme makes theme active for the visitor, then persists it.
// Persistence failures are logged and otherwise ignored.
func (s *ThemeStore) SetTheme(ctx context.Context, visitorID string, theme domain.Theme) error {
	if !theme.Valid() {
		return domain.ErrInvalidTheme
	}
	err := s.prefs.Set(ctx, visitorID, store.KeyTheme, string(theme))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("theme preference write failed", "visitor_id", visitorID, "theme", theme, "err", err)
	}
	s.mu.Lock()
	s.remember(visitorID, cachedTheme{theme: theme, fetched: s.now(), unsynced: err != nil})
	s.mu.Unlock()
	return nil
}

// remember stores entry for visitorID; callers hold s.mu.
// When the cache is full an arbitrary entry is evicted; it is re-read from
// the preference store on the next request.
func (s *ThemeStore) remember(visitorID string, entry cachedTheme) {
	if _, ok := s.active[visitorID]; !ok && len(s.active) >= maxCachedVisitors {
		for k := range s.active {
			delete(s.active, k)
			break
		}
	}
	s.active[visitorID] = entry
}
