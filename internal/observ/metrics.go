package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64   // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = &registry{
	counters: map[string]map[string]int64{},
	gauges:   map[string]map[string]float64{},
	hist:     map[string]map[string][]float64{},
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	k := canonLabels(labels)
	m[k] += int64(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	k := canonLabels(labels)
	m[k] = value
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	m[k] = append(m[k], value)
}

// RecordDuration records a duration observation in milliseconds.
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Milliseconds()), labels)
}

// Basic text/JSON dump for quick checks (not Prometheus format on purpose)
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{Counters: reg.counters, Gauges: reg.gauges, Hist: reg.hist})
	})
}

// HealthStatus summarizes the watch loop for the /healthz endpoint.
type HealthStatus struct {
	Status       string `json:"status"` // "ok", "degraded", "stale"
	Timestamp    string `json:"timestamp"`
	Uptime       string `json:"uptime"`
	PollerUp     bool   `json:"poller_up"`
	Points       int    `json:"points"`
	CyclesFresh  int64  `json:"cycles_fresh"`
	CyclesCarry  int64  `json:"cycles_carried"`
	CyclesFailed int64  `json:"cycles_failed"`
}

var startTime = time.Now()

func counterTotal(name string) int64 {
	var total int64
	if m, ok := reg.counters[name]; ok {
		for _, c := range m {
			total += c
		}
	}
	return total
}

func gaugeValue(name string) float64 {
	if m, ok := reg.gauges[name]; ok {
		for _, v := range m {
			return v
		}
	}
	return 0
}

// HealthHandler reports poller liveness and cycle outcome totals,
// derived from the same registry the loop writes into.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()

		fresh := counterTotal("fetch_cycles_fresh_total")
		carried := counterTotal("fetch_cycles_carried_total")
		failed := counterTotal("fetch_cycles_failed_total")

		status := "ok"
		if failed > 0 && fresh == 0 {
			status = "stale"
		} else if carried+failed > fresh {
			status = "degraded"
		}

		h := HealthStatus{
			Status:       status,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Uptime:       time.Since(startTime).String(),
			PollerUp:     gaugeValue("poller_running") == 1,
			Points:       int(gaugeValue("store_points")),
			CyclesFresh:  fresh,
			CyclesCarry:  carried,
			CyclesFailed: failed,
		}

		code := http.StatusOK
		if status == "stale" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h)
	})
}
