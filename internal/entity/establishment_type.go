package entity

import "strings"

// EstablishmentType narrows a search to one kind of venue.
type EstablishmentType int

const (
	TypeGeneric EstablishmentType = iota
	TypeRestaurant
	TypeCafe
	TypeBakery
)

// ParseEstablishmentType accepts the singular and plural English names. Unknown values are Generic.
func ParseEstablishmentType(value string) EstablishmentType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "restaurant", "restaurants":
		return TypeRestaurant
	case "cafe", "cafes", "café", "cafés", "coffee":
		return TypeCafe
	case "bakery", "bakeries":
		return TypeBakery
	default:
		return TypeGeneric
	}
}

// String returns the word used in user-facing sentences.
func (t EstablishmentType) String() string {
	switch t {
	case TypeRestaurant:
		return "Restaurant"
	case TypeCafe:
		return "Cafe"
	case TypeBakery:
		return "Bakery"
	default:
		return "Establishment"
	}
}

// Slug is the lower-case identifier used in cache keys, metrics and JSON.
func (t EstablishmentType) Slug() string {
	return strings.ToLower(t.String())
}

// searchPhrase is the query prefix sent to the places provider.
func (t EstablishmentType) searchPhrase() string {
	switch t {
	case TypeRestaurant:
		return "gluten-free restaurants in"
	case TypeCafe:
		return "gluten-free cafes in"
	case TypeBakery:
		return "gluten-free bakeries in"
	default:
		return "gluten-free establishments in"
	}
}

// SearchQuery is the input of one paginated places search.
type SearchQuery struct {
	City    string
	Type    EstablishmentType
	Country string
}

// Text builds the free-text query, e.g. "gluten-free cafes in Tampere, Finland".
func (q SearchQuery) Text() string {
	text := q.Type.searchPhrase() + " " + strings.TrimSpace(q.City)
	if country := strings.TrimSpace(q.Country); country != "" {
		text += ", " + country
	}
	return text
}
