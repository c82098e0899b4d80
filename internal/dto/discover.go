package dto

import "github.com/octobees/gluten-finder/api/internal/entity"

// DiscoverRequest carries the query parameters of GET /discover.
type DiscoverRequest struct {
	City    string `query:"city" validate:"required,max=120"`
	Type    string `query:"type" validate:"omitempty,max=40"`
	Country string `query:"country" validate:"omitempty,max=80"`
}

// EstablishmentResponse is one search result as returned to clients.
// Rating is a number, or the string "N/A" when the provider had none.
type EstablishmentResponse struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Rating      any      `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Categories  []string `json:"categories"`
	Status      string   `json:"status"`
}

// DiscoverResponse is the payload of a finished discovery.
type DiscoverResponse struct {
	City           string                  `json:"city"`
	Type           string                  `json:"type"`
	Country        string                  `json:"country,omitempty"`
	Outcome        string                  `json:"outcome"`
	DisplayText    string                  `json:"display_text"`
	Advisory       string                  `json:"advisory,omitempty"`
	Establishments []EstablishmentResponse `json:"establishments"`
}

// NewEstablishmentResponses converts entities into their wire form.
func NewEstablishmentResponses(records []entity.Establishment) []EstablishmentResponse {
	out := make([]EstablishmentResponse, 0, len(records))
	for _, r := range records {
		var rating any = r.RatingLabel()
		if r.Rating != nil {
			rating = *r.Rating
		}
		categories := r.CategoryTags
		if categories == nil {
			categories = []string{}
		}
		out = append(out, EstablishmentResponse{
			PlaceID:     r.PlaceID,
			Name:        r.Name,
			Address:     r.Address,
			Rating:      rating,
			ReviewCount: r.ReviewCount,
			Categories:  categories,
			Status:      r.Status.String(),
		})
	}
	return out
}
