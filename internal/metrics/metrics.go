// internal/metrics/metrics.go

// Package metrics records ledger operation timings and outcomes in a
// go-metrics registry and exposes a JSON snapshot of it.
package metrics

import (
	"math"
	"net/http"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Registry is a thin wrapper around a go-metrics registry. A nil *Registry
// is valid and records nothing.
type Registry struct {
	r gometrics.Registry
}

func New() *Registry {
	return &Registry{r: gometrics.NewRegistry()}
}

// ObserveOp records one call of the named operation: its latency, and either
// a success or an error counter keyed by the error kind.
func (m *Registry) ObserveOp(op string, start time.Time, kind string) {
	if m == nil {
		return
	}
	gometrics.GetOrRegisterTimer("ledger."+op, m.r).UpdateSince(start)
	if kind == "" {
		gometrics.GetOrRegisterCounter("ledger."+op+".ok", m.r).Inc(1)
		return
	}
	gometrics.GetOrRegisterCounter("ledger."+op+".err."+kind, m.r).Inc(1)
}

// AddVolume tracks the total base units moved by the named flow. The
// counter saturates at math.MaxInt64 instead of wrapping.
func (m *Registry) AddVolume(flow string, amount uint64) {
	if m == nil {
		return
	}
	c := gometrics.GetOrRegisterCounter("volume."+flow, m.r)
	room := uint64(math.MaxInt64 - c.Count())
	if amount > room {
		amount = room
	}
	if amount > 0 {
		c.Inc(int64(amount))
	}
}

// Gauge sets a named gauge, e.g. connected websocket watchers.
func (m *Registry) Gauge(name string, v int64) {
	if m == nil {
		return
	}
	gometrics.GetOrRegisterGauge(name, m.r).Update(v)
}

// Count returns the current value of a counter, or 0 if it was never set.
func (m *Registry) Count(name string) int64 {
	if m == nil {
		return 0
	}
	if c, ok := m.r.Get(name).(gometrics.Counter); ok {
		return c.Count()
	}
	return 0
}

// Handler writes the registry as JSON.
func (m *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if m == nil {
			w.Write([]byte("{}\n"))
			return
		}
		gometrics.WriteJSONOnce(m.r, w)
	}
}
