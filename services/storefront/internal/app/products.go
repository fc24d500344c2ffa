package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/util"
	"storefront/pkg/catalog"
	"storefront/pkg/domain"
)

// CatalogFetcher loads the full product list from upstream.
type CatalogFetcher interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

// ProductStore holds the fetched catalog and the status of the latest fetch.
// Every fetch is tagged with a generation; only the newest generation may
// record its result.
type ProductStore struct {
	fetcher CatalogFetcher
	now     func() time.Time

	mu         sync.RWMutex
	status     domain.FetchStatus
	products   []domain.Product
	errMsg     string
	fetchedAt  time.Time
	generation uint64
}

func NewProductStore(fetcher CatalogFetcher) *ProductStore {
	return &ProductStore{
		fetcher: fetcher,
		now:     time.Now,
		status:  domain.FetchIdle,
	}
}

// Snapshot returns a copy of the current state.
func (s *ProductStore) Snapshot() domain.CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *ProductStore) snapshotLocked() domain.CatalogSnapshot {
	products := make([]domain.Product, len(s.products))
	copy(products, s.products)
	return domain.CatalogSnapshot{
		Status:    s.status,
		Products:  products,
		Err:       s.errMsg,
		FetchedAt: s.fetchedAt,
	}
}

// Fetch loads the catalog from upstream. The store is pending while the
// request is in flight; on failure the previous catalog is kept.
func (s *ProductStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	gen := s.begin()
	s.mu.Unlock()
	return s.run(ctx, gen)
}

// EnsureLoaded fetches the catalog only if no fetch has ever been issued,
// then returns the resulting snapshot. The fetch is detached from ctx
// cancellation since its result is shared by every visitor.
func (s *ProductStore) EnsureLoaded(ctx context.Context) domain.CatalogSnapshot {
	s.mu.Lock()
	if s.status != domain.FetchIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	gen := s.begin()
	s.mu.Unlock()

	_ = s.run(context.WithoutCancel(ctx), gen)
	return s.Snapshot()
}

// begin issues a new generation; callers hold s.mu.
func (s *ProductStore) begin() uint64 {
	s.generation++
	s.status = domain.FetchPending
	s.errMsg = ""
	return s.generation
}

func (s *ProductStore) run(ctx context.Context, gen uint64) error {
	logger := util.LoggerFromContext(ctx)
	start := s.now()
	products, err := s.fetcher.FetchProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		logger.Debug("discarding stale catalog result", "generation", gen, "latest", s.generation)
		if err != nil {
			return fmt.Errorf("fetch catalog: %w", err)
		}
		return nil
	}
	if err != nil {
		s.status = domain.FetchFailed
		s.errMsg = catalog.Message(err)
		logger.Warn("catalog fetch failed", "generation", gen, "err", err)
		return fmt.Errorf("fetch catalog: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	s.products = products
	s.status = domain.FetchSucceeded
	s.errMsg = ""
	s.fetchedAt = s.now()
	logger.Info("catalog loaded", "generation", gen, "products", len(products), "duration_ms", s.fetchedAt.Sub(start).Milliseconds())
	return nil
}
