package observability

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

// Metrics is a small Prometheus text-format registry. A nil *Metrics is a
// valid no-op so callers never need to check whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	lessonViews *Counter
	uploads     *CounterVec
	authEvents  *CounterVec
	cacheLoads  *CounterVec
	dbStats     *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ss_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ss_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		),
		apiInflight: NewGauge("ss_api_inflight_requests", "In-flight API requests."),
		lessonViews: NewCounter("ss_lesson_views_total", "Lesson view increments recorded."),
		uploads:     NewCounterVec("ss_image_uploads_total", "Uploaded or rejected lesson images by result.", []string{"result"}),
		authEvents:  NewCounterVec("ss_auth_events_total", "Sign-in outcomes by method/result.", []string{"method", "result"}),
		cacheLoads:  NewCounterVec("ss_query_cache_total", "Query cache lookups by namespace/result.", []string{"namespace", "result"}),
		dbStats:     NewGaugeVec("ss_db_pool", "database/sql pool statistics.", []string{"stat"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.lessonViews,
		m.uploads, m.authEvents, m.cacheLoads, m.dbStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Add(1)
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Add(-1)
	}
}

func (m *Metrics) IncLessonView() {
	if m != nil {
		m.lessonViews.Add(1)
	}
}

func (m *Metrics) AddUploads(uploaded, rejected int) {
	if m == nil {
		return
	}
	m.uploads.Add(float64(uploaded), "uploaded")
	m.uploads.Add(float64(rejected), "rejected")
}

func (m *Metrics) IncAuth(method string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.authEvents.Inc(method, result)
}

func (m *Metrics) IncCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLoads.Inc(namespace, result)
}

// StartDBCollector samples the connection pool until ctx ends.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, every time.Duration) {
	if m == nil || db == nil {
		return
	}
	if every <= 0 {
		every = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleDB(log, db)
			}
		}
	}()
}

func (m *Metrics) sampleDB(log *logger.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
		return
	}
	st := sqlDB.Stats()
	m.dbStats.Set(float64(st.OpenConnections), "open_connections")
	m.dbStats.Set(float64(st.InUse), "in_use")
	m.dbStats.Set(float64(st.Idle), "idle")
	m.dbStats.Set(float64(st.WaitCount), "wait_count")
	m.dbStats.Set(st.WaitDuration.Seconds(), "wait_duration_seconds")
}

type series struct {
	labels []string
	value  float64
}

type CounterVec struct {
	name, help string
	labels     []string
	mu         sync.Mutex
	values     map[string]*series
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labels: labels, values: map[string]*series{}}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if v <= 0 {
		return
	}
	key := strings.Join(values, "\xff")
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.values[key]
	if !ok {
		s = &series{labels: append([]string(nil), values...)}
		c.values[key] = s
	}
	s.value += v
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name); err != nil {
		return err
	}
	for _, key := range sortedKeys(c.values) {
		s := c.values[key]
		if _, err := fmt.Fprintf(w, "%s%s %s\n", c.name, labelString(c.labels, s.labels), formatFloat(s.value)); err != nil {
			return err
		}
	}
	return nil
}

type Counter struct {
	name, help string
	mu         sync.Mutex
	value      float64
}

func NewCounter(name, help string) *Counter { return &Counter{name: name, help: help} }

func (c *Counter) Add(v float64) {
	if v <= 0 {
		return
	}
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %s\n", c.name, c.help, c.name, c.name, formatFloat(c.Value()))
	return err
}

type Gauge struct {
	name, help string
	mu         sync.Mutex
	value      float64
}

func NewGauge(name, help string) *Gauge { return &Gauge{name: name, help: help} }

func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	g.mu.Lock()
	v := g.value
	g.mu.Unlock()
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %s\n", g.name, g.help, g.name, g.name, formatFloat(v))
	return err
}

type GaugeVec struct {
	name, help string
	labels     []string
	mu         sync.Mutex
	values     map[string]*series
}

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{name: name, help: help, labels: labels, values: map[string]*series{}}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	key := strings.Join(values, "\xff")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[key] = &series{labels: append([]string(nil), values...), value: v}
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name); err != nil {
		return err
	}
	for _, key := range sortedKeys(g.values) {
		s := g.values[key]
		if _, err := fmt.Fprintf(w, "%s%s %s\n", g.name, labelString(g.labels, s.labels), formatFloat(s.value)); err != nil {
			return err
		}
	}
	return nil
}

type HistogramVec struct {
	name, help string
	labels     []string
	buckets    []float64
	mu         sync.Mutex
	values     map[string]*histogram
}

type histogram struct {
	labels []string
	counts []uint64
	count  uint64
	sum    float64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return &HistogramVec{name: name, help: help, labels: labels, buckets: b, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	key := strings.Join(values, "\xff")
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[key]
	if !ok {
		hist = &histogram{labels: append([]string(nil), values...), counts: make([]uint64, len(h.buckets))}
		h.values[key] = hist
	}
	for i, le := range h.buckets {
		if v <= le {
			hist.counts[i]++
		}
	}
	hist.count++
	hist.sum += v
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name); err != nil {
		return err
	}
	for _, key := range sortedKeys(h.values) {
		hist := h.values[key]
		base := labelString(h.labels, hist.labels)
		for i, le := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(base, formatFloat(le)), hist.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %s\n%s_count%s %d\n",
			h.name, withLe(base, "+Inf"), hist.count,
			h.name, base, formatFloat(hist.sum),
			h.name, base, hist.count,
		); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		parts = append(parts, fmt.Sprintf(`%s="%s"`, n, escapeLabel(v)))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func escapeLabel(v string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`).Replace(v)
}

func withLe(labels, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
