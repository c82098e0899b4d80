package service

import (
	"strings"

	"github.com/octobees/gluten-finder/api/internal/entity"
)

// ValidationError indicates the discovery request was rejected before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Message
}

// NormalizeQuery collapses whitespace in the free-text fields of a query and checks that a city is present.
// The caller's spelling and casing are kept as given.
func NormalizeQuery(q entity.SearchQuery) (entity.SearchQuery, error) {
	q.City = collapseSpaces(q.City)
	if q.City == "" {
		return entity.SearchQuery{}, ValidationError{Field: "city", Message: "city is required"}
	}
	q.Country = collapseSpaces(q.Country)
	return q, nil
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
