package app

import (
	"errors"
	"time"

	"storefront/pkg/store"
)

// Config holds the dependencies of the storefront core.
type Config struct {
	Catalog      CatalogFetcher
	Preferences  store.PreferenceStore
	ContactDelay time.Duration
}

// App bundles the theme store, product store and contact desk.
type App struct {
	Themes   *ThemeStore
	Products *ProductStore
	Contact  *ContactDesk
}

// New wires the core from explicit dependencies.
func New(cfg Config) (*App, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog fetcher required")
	}
	if cfg.Preferences == nil {
		return nil, errors.New("preference store required")
	}
	return &App{
		Themes:   NewThemeStore(cfg.Preferences),
		Products: NewProductStore(cfg.Catalog),
		Contact:  NewContactDesk(cfg.ContactDelay),
	}, nil
}
