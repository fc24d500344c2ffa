package app

import (
	"strconv"
	"strings"

	"storefront/pkg/domain"
)

// Categories returns CategoryAll followed by each distinct category in
// first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := []string{domain.CategoryAll}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// NormalizeCategory maps an empty filter to CategoryAll. Any other value is
// kept verbatim, so "electronics " matches no product.
func NormalizeCategory(raw string) string {
	if raw == "" {
		return domain.CategoryAll
	}
	return raw
}

// FilterByCategory keeps the products whose category equals category exactly,
// preserving order. CategoryAll keeps everything.
func FilterByCategory(products []domain.Product, category string) []domain.Product {
	category = NormalizeCategory(category)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if category == domain.CategoryAll || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// FindProduct scans products for an exact id match.
func FindProduct(products []domain.Product, id int) (domain.Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// ParseProductID parses a route id; non-numeric ids can never match.
func ParseProductID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrProductNotFound
	}
	return id, nil
}
