package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_evaluations_total",
			Help: "Total number of recorded evaluations",
		},
		[]string{"decision"},
	)

	matchesEstablishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_established_total",
			Help: "Total number of mutually established relationships",
		},
	)

	candidateSelectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidate_selections_total",
			Help: "Total number of successful candidate selections",
		},
	)

	candidateSelectionWidenings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_candidate_widenings",
			Help:    "Age band widenings needed per successful selection",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)
)
