package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlacesPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_pages_fetched_total",
			Help: "Places search pages requested, by provider status",
		},
		[]string{"status"},
	)

	PlacesEstablishmentsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_establishments_dropped_total",
			Help: "Raw places results discarded during normalization or de-duplication",
		},
		[]string{"reason"},
	)

	ClassificationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_results_total",
			Help: "Classification calls by result kind",
		},
		[]string{"kind"},
	)

	DiscoveryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_lookups_total",
			Help: "Discovery cache lookups by result",
		},
		[]string{"result"},
	)

	DiscoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_duration_seconds",
			Help:    "End-to-end duration of discover-and-classify runs",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"outcome"},
	)
)
