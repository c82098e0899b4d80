package places

import (
	"strings"

	"github.com/octobees/gluten-finder/api/internal/entity"
)

// Normalize converts a raw provider result into an Establishment.
// It reports false when the result has no place_id or is not operational.
func Normalize(raw RawPlace) (entity.Establishment, bool) {
	placeID := strings.TrimSpace(raw.PlaceID)
	if placeID == "" {
		return entity.Establishment{}, false
	}

	status := entity.ParseOperationalStatus(raw.BusinessStatus)
	if status != entity.StatusOperational {
		return entity.Establishment{}, false
	}

	reviews := 0
	if raw.UserRatingsTotal != nil && *raw.UserRatingsTotal > 0 {
		reviews = *raw.UserRatingsTotal
	}

	var rating *float64
	if raw.Rating != nil {
		r := *raw.Rating
		rating = &r
	}

	return entity.Establishment{
		PlaceID:      placeID,
		Name:         strings.TrimSpace(raw.Name),
		Address:      strings.TrimSpace(raw.FormattedAddress),
		Rating:       rating,
		ReviewCount:  reviews,
		CategoryTags: normalizeTags(raw.Types),
		Status:       status,
	}, true
}

func normalizeTags(types []string) []string {
	tags := make([]string, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// dedupeByPlaceID keeps the first occurrence of every place id, preserving encounter order.
func dedupeByPlaceID(records []entity.Establishment) ([]entity.Establishment, int) {
	out := make([]entity.Establishment, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.PlaceID]; ok {
			continue
		}
		seen[r.PlaceID] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
