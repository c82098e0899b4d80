package entity

// DiscoveryOutcome describes which branch of the pipeline produced the display text.
type DiscoveryOutcome string

const (
	OutcomeClassified DiscoveryOutcome = "classified"
	OutcomeFallback   DiscoveryOutcome = "fallback"
	OutcomeNoResults  DiscoveryOutcome = "no_results"
)

// Discovery is the caller-visible result of one discover-and-classify run.
// Establishments is the full de-duplicated search result, not the capped prompt subset.
// Query is the normalized query the run used; it is not persisted with cached entries.
type Discovery struct {
	Query          SearchQuery      `json:"-"`
	DisplayText    string           `json:"display_text"`
	Establishments []Establishment  `json:"establishments"`
	Outcome        DiscoveryOutcome `json:"outcome"`
}
