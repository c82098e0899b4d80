package entity

import (
	"strconv"
	"strings"
)

// RatingNotAvailable is shown when the provider did not report an average rating.
const RatingNotAvailable = "N/A"

// OperationalStatus mirrors the provider business_status flag.
type OperationalStatus int

const (
	StatusUnknown OperationalStatus = iota
	StatusOperational
	StatusNotOperational
)

// ParseOperationalStatus maps the provider business_status string.
func ParseOperationalStatus(value string) OperationalStatus {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "OPERATIONAL":
		return StatusOperational
	case "":
		return StatusUnknown
	default:
		// CLOSED_TEMPORARILY, CLOSED_PERMANENTLY and anything newer.
		return StatusNotOperational
	}
}

func (s OperationalStatus) String() string {
	switch s {
	case StatusOperational:
		return "operational"
	case StatusNotOperational:
		return "not_operational"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its lower-case name.
func (s OperationalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts both the lower-case names and the provider spelling.
func (s *OperationalStatus) UnmarshalText(data []byte) error {
	switch string(data) {
	case "operational":
		*s = StatusOperational
	case "not_operational":
		*s = StatusNotOperational
	case "unknown":
		*s = StatusUnknown
	default:
		*s = ParseOperationalStatus(string(data))
	}
	return nil
}

// Establishment is one discovered venue. Values are never mutated after normalization.
type Establishment struct {
	PlaceID      string            `json:"place_id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Rating       *float64          `json:"rating,omitempty"`
	ReviewCount  int               `json:"review_count"`
	CategoryTags []string          `json:"category_tags"`
	Status       OperationalStatus `json:"status"`
}

// RatingLabel renders the rating for display, falling back to RatingNotAvailable.
func (e Establishment) RatingLabel() string {
	if e.Rating == nil {
		return RatingNotAvailable
	}
	return strconv.FormatFloat(*e.Rating, 'f', 1, 64)
}
