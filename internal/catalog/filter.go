package catalog

import (
	"strings"

	"github.com/ashureev/shopassist/internal/domain"
)

// ApplyFilters returns the products satisfying every set filter, in input
// order. Products with a non-positive price are always dropped. Brand must
// appear in the name; color may appear in the color field or the name.
func ApplyFilters(products []domain.Product, f domain.Filters) []domain.Product {
	out := make([]domain.Product, 0, len(products))

	var brand, color string
	if f.Brand != nil {
		brand = strings.ToLower(*f.Brand)
	}
	if f.Color != nil {
		color = strings.ToLower(*f.Color)
	}

	for _, p := range products {
		if p.Price <= 0 {
			continue
		}
		if f.PriceMax != nil && p.Price > *f.PriceMax {
			continue
		}
		if f.PriceMin != nil && p.Price < *f.PriceMin {
			continue
		}

		name := strings.ToLower(p.Name)
		if f.Brand != nil && !strings.Contains(name, brand) {
			continue
		}
		if f.Color != nil && !strings.Contains(strings.ToLower(p.Color), color) && !strings.Contains(name, color) {
			continue
		}
		out = append(out, p)
	}
	return out
}
