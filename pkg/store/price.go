package store

import (
	"strconv"
	"strings"

	"diamondbot/pkg/domain"
)

// ParsePrice extracts a numeric price from a listing price string.
// Returns false for the contact-for-price sentinel and anything else
// that is not a number.
func ParsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, domain.PriceOnRequest) {
		return 0, false
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FilterListingsByPrice keeps listings whose numeric price falls in the
// given bounds. Listings without a numeric price pass only when no bound
// is set.
func FilterListingsByPrice(listings []domain.Listing, min, max *float64) []domain.Listing {
	if min == nil && max == nil {
		return listings
	}
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		price, ok := ParsePrice(l.Price)
		if !ok {
			continue
		}
		if min != nil && price < *min {
			continue
		}
		if max != nil && price > *max {
			continue
		}
		out = append(out, l)
	}
	return out
}
