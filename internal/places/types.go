package places

// Provider statuses handled explicitly. Everything else is a rejection.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// textSearchResponse mirrors the parts of the Text Search payload the pipeline consumes.
type textSearchResponse struct {
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	NextPageToken string     `json:"next_page_token,omitempty"`
	Results       []RawPlace `json:"results"`
}

// RawPlace is one entry of the provider "results" array.
type RawPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
}
