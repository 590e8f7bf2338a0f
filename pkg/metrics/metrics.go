// Package metrics provides the module's metrics surface: counters, gauges,
// and summaries keyed by name and label set, backed by a package-level
// Prometheus registry. Call sites never touch the registry directly.
package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type registry struct {
	mu         sync.Mutex
	reg        *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	summaries  map[string]*prometheus.SummaryVec
}

var r *registry

func init() {
	r = newRegistry()
}

func newRegistry() *registry {
	return &registry{
		reg:       prometheus.NewRegistry(),
		counters:  make(map[string]*prometheus.CounterVec),
		gauges:    make(map[string]*prometheus.GaugeVec),
		summaries: make(map[string]*prometheus.SummaryVec),
	}
}

// Reset discards all registered metrics and starts from a fresh registry.
// Intended for test isolation between otherwise-independent test cases.
func Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r = newRegistry()
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func labelValues(labels map[string]string, names []string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = labels[n]
	}
	return out
}

// Inc increments a counter identified by name and label set, registering it
// lazily on first use.
func Inc(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := labelNames(labels)
	cv, ok := r.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, names)
		r.reg.MustRegister(cv)
		r.counters[name] = cv
	}
	cv.With(labelValues(labels, names)).Inc()
}

// SetGauge sets a gauge identified by name and label set, registering it
// lazily on first use.
func SetGauge(name string, labels map[string]string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := labelNames(labels)
	gv, ok := r.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, names)
		r.reg.MustRegister(gv)
		r.gauges[name] = gv
	}
	gv.With(labelValues(labels, names)).Set(float64(value))
}

// AddGauge adds delta to a gauge identified by name and label set,
// registering it lazily on first use. Negative deltas decrement.
func AddGauge(name string, labels map[string]string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := labelNames(labels)
	gv, ok := r.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, names)
		r.reg.MustRegister(gv)
		r.gauges[name] = gv
	}
	gv.With(labelValues(labels, names)).Add(float64(delta))
}

// ObserveSummary records an observation (typically a latency in milliseconds)
// into a summary identified by name and label set, registering it lazily on
// first use.
func ObserveSummary(name string, labels map[string]string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := labelNames(labels)
	sv, ok := r.summaries[name]
	if !ok {
		sv = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       name,
			Help:       name,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, names)
		r.reg.MustRegister(sv)
		r.summaries[name] = sv
	}
	sv.With(labelValues(labels, names)).Observe(value)
}

// DumpProm renders the current registry in Prometheus text exposition
// format, grep-friendly for assertions in tests.
func DumpProm() string {
	r.mu.Lock()
	mfs, err := r.reg.Gather()
	r.mu.Unlock()
	if err != nil {
		return ""
	}
	var sb strings.Builder
	enc := expfmt.NewEncoder(&sb, expfmt.FmtText)
	for _, mf := range mfs {
		_ = enc.Encode(mf)
	}
	return sb.String()
}
