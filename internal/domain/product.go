// Package domain contains core domain types for the shopping assistant.
package domain

// Product is a candidate listing returned by the catalog.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       int     `json:"price"`
	Color       string  `json:"color"`
	Category    string  `json:"category"`
	Site        string  `json:"site,omitempty"`
	Image       string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
	Rating      float64 `json:"rating"`
	StoreURL    string  `json:"storeUrl,omitempty"`
}

// Filters narrows a product search. A nil field means no constraint.
type Filters struct {
	PriceMax *int    `json:"price_max,omitempty"`
	PriceMin *int    `json:"price_min,omitempty"`
	Brand    *string `json:"brand,omitempty"`
	Color    *string `json:"color,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.PriceMax == nil && f.PriceMin == nil && f.Brand == nil && f.Color == nil
}

// Clone returns a copy that shares no pointers with f.
func (f Filters) Clone() Filters {
	var out Filters
	if f.PriceMax != nil {
		out.PriceMax = IntPtr(*f.PriceMax)
	}
	if f.PriceMin != nil {
		out.PriceMin = IntPtr(*f.PriceMin)
	}
	if f.Brand != nil {
		out.Brand = StringPtr(*f.Brand)
	}
	if f.Color != nil {
		out.Color = StringPtr(*f.Color)
	}
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
