package analytics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes report builds.
type Metrics struct {
	builds    *prometheus.HistogramVec
	cacheHits *prometheus.CounterVec
	cacheMiss *prometheus.CounterVec
	shared    *prometheus.CounterVec
}

// NewMetrics registers report collectors. Collectors already registered on
// reg are reused. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		builds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerbooks_report_build_duration_seconds",
			Help:    "Duration required to build a report, by report and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"report", "outcome"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbooks_report_cache_hits_total",
			Help: "Number of reports served from the cache.",
		}, []string{"report"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbooks_report_cache_miss_total",
			Help: "Number of reports computed after a cache miss.",
		}, []string{"report"}),
		shared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbooks_report_coalesced_total",
			Help: "Number of requests that shared an in-flight build.",
		}, []string{"report"}),
	}
	var err error
	if m.builds, err = registerVec(reg, m.builds); err != nil {
		return nil, err
	}
	if m.cacheHits, err = registerVec(reg, m.cacheHits); err != nil {
		return nil, err
	}
	if m.cacheMiss, err = registerVec(reg, m.cacheMiss); err != nil {
		return nil, err
	}
	if m.shared, err = registerVec(reg, m.shared); err != nil {
		return nil, err
	}
	return m, nil
}

func registerVec[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

func (m *Metrics) observeBuild(report string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrInvalidParameters):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	m.builds.WithLabelValues(report, outcome).Observe(d.Seconds())
}

func (m *Metrics) recordCache(report string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.WithLabelValues(report).Inc()
		return
	}
	m.cacheMiss.WithLabelValues(report).Inc()
}

func (m *Metrics) recordShared(report string) {
	if m == nil {
		return
	}
	m.shared.WithLabelValues(report).Inc()
}
