package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Fetches      *prometheus.CounterVec
	FetchErrors  prometheus.Counter
	Probes       prometheus.Counter
	ProbeHits    prometheus.Counter
	StaleDropped prometheus.Counter
	Ticks        prometheus.Counter
}

// NewMetrics builds the synchronizer collectors. A nil registerer leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "page_fetches_total",
			Help:      "Comment page fetches started, by trigger.",
		}, []string{"reason"}),
		FetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "page_fetch_errors_total",
			Help:      "Comment page fetches that failed or returned a malformed tree.",
		}),
		Probes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "probes_total",
			Help:      "Has-new-comments probes issued.",
		}),
		ProbeHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "probe_hits_total",
			Help:      "Probes that reported new comments.",
		}),
		StaleDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "stale_results_dropped_total",
			Help:      "Fetch and probe results discarded because a newer generation was live.",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcomments",
			Subsystem: "feed",
			Name:      "poll_ticks_total",
			Help:      "Poll timer firings.",
		}),
	}
}
