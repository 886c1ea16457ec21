package intent

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/lexicon"
)

// Canonicalize drops negative prices and empty strings and title-cases brand
// and color. Canonicalize(Canonicalize(f)) equals Canonicalize(f).
func Canonicalize(f domain.Filters) domain.Filters {
	var out domain.Filters
	if f.PriceMax != nil && *f.PriceMax >= 0 {
		out.PriceMax = domain.IntPtr(*f.PriceMax)
	}
	if f.PriceMin != nil && *f.PriceMin >= 0 {
		out.PriceMin = domain.IntPtr(*f.PriceMin)
	}
	out.Brand = canonicalString(f.Brand)
	out.Color = canonicalString(f.Color)
	return out
}

// FromRaw coerces loosely typed filters, such as those decoded from a model
// reply, into canonical Filters. Values that cannot be coerced are dropped.
func FromRaw(raw map[string]any) domain.Filters {
	var f domain.Filters
	if v, ok := coerceInt(lookup(raw, "price_max", "max_price", "priceMax")); ok {
		f.PriceMax = &v
	}
	if v, ok := coerceInt(lookup(raw, "price_min", "min_price", "priceMin")); ok {
		f.PriceMin = &v
	}
	if v, ok := raw["brand"].(string); ok {
		f.Brand = &v
	}
	if v, ok := raw["color"].(string); ok {
		f.Color = &v
	}
	return Canonicalize(f)
}

// Merge overlays next onto prev: fields set in next win, fields absent from
// next keep their previous value.
func Merge(prev, next domain.Filters) domain.Filters {
	out := prev.Clone()
	if next.PriceMax != nil {
		out.PriceMax = domain.IntPtr(*next.PriceMax)
	}
	if next.PriceMin != nil {
		out.PriceMin = domain.IntPtr(*next.PriceMin)
	}
	if next.Brand != nil {
		out.Brand = domain.StringPtr(*next.Brand)
	}
	if next.Color != nil {
		out.Color = domain.StringPtr(*next.Color)
	}
	return out
}

func canonicalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := lexicon.TitleCase(*s)
	if v == "" {
		return nil
	}
	return &v
}

func lookup(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		cleaned := strings.NewReplacer(",", "", "₹", "", " ", "").Replace(strings.TrimSpace(n))
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}
