package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP requests,
// catalog lifecycle events, auth activity, and datastore health. It
// coordinates concurrent writers via a RWMutex while exposing a thread-safe
// gauge for active session tracking.
type Recorder struct {
	mu                   sync.RWMutex
	requestCount         map[requestLabel]uint64
	requestDuration      map[requestLabel]time.Duration
	courseEvents         map[string]uint64
	categoryEvents       map[string]uint64
	chapterEvents        map[string]uint64
	authEvents           map[string]uint64
	datastoreHealthValue map[string]float64
	datastoreHealthState map[string]string
	activeSessions       atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:         make(map[requestLabel]uint64),
		requestDuration:      make(map[requestLabel]time.Duration),
		courseEvents:         make(map[string]uint64),
		categoryEvents:       make(map[string]uint64),
		chapterEvents:        make(map[string]uint64),
		authEvents:           make(map[string]uint64),
		datastoreHealthValue: make(map[string]float64),
		datastoreHealthState: make(map[string]string),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveCourseEvent records a course lifecycle event such as "created",
// "updated", or "deleted".
func (r *Recorder) ObserveCourseEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.courseEvents[name]++
	r.mu.Unlock()
}

// ObserveCategoryEvent records a category lifecycle event.
func (r *Recorder) ObserveCategoryEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.categoryEvents[name]++
	r.mu.Unlock()
}

// ObserveChapterEvent records a chapter lifecycle event.
func (r *Recorder) ObserveChapterEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.chapterEvents[name]++
	r.mu.Unlock()
}

// ObserveAuthEvent records an auth event such as "login_success",
// "login_failure", or "signup".
func (r *Recorder) ObserveAuthEvent(event string) {
	name := normalizeName(event)
	r.mu.Lock()
	r.authEvents[name]++
	r.mu.Unlock()
}

// SessionOpened increments the active session gauge.
func (r *Recorder) SessionOpened() {
	r.activeSessions.Add(1)
}

// SessionClosed decrements the active session gauge, guarding against negative
// counts when concurrent updates race.
func (r *Recorder) SessionClosed() {
	r.decrementGauge(&r.activeSessions)
}

// ActiveSessions exposes the current gauge of live sessions.
func (r *Recorder) ActiveSessions() int64 {
	return r.activeSessions.Load()
}

// SetDatastoreHealth normalizes component identifiers, maps status strings to
// numeric health values, and stores both representations for export.
func (r *Recorder) SetDatastoreHealth(component, status string) {
	normalizedComponent := normalizeName(component)
	normalizedStatus := strings.ToLower(strings.TrimSpace(status))
	value := 0.0
	switch normalizedStatus {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	default:
		value = -1
	}
	r.mu.Lock()
	r.datastoreHealthValue[normalizedComponent] = value
	r.datastoreHealthState[normalizedComponent] = normalizedStatus
	r.mu.Unlock()
}

// CourseEventCounts returns a copy of the course event counters for testing
// and reporting purposes.
func (r *Recorder) CourseEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make(map[string]uint64, len(r.courseEvents))
	for k, v := range r.courseEvents {
		events[k] = v
	}
	return events
}

// AuthEventCounts returns a copy of the auth event counters.
func (r *Recorder) AuthEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make(map[string]uint64, len(r.authEvents))
	for k, v := range r.authEvents {
		events[k] = v
	}
	return events
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.courseEvents = make(map[string]uint64)
	r.categoryEvents = make(map[string]uint64)
	r.chapterEvents = make(map[string]uint64)
	r.authEvents = make(map[string]uint64)
	r.datastoreHealthValue = make(map[string]float64)
	r.datastoreHealthState = make(map[string]string)
	r.activeSessions.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	courseEvents := sortedKeys(r.courseEvents)
	categoryEvents := sortedKeys(r.categoryEvents)
	chapterEvents := sortedKeys(r.chapterEvents)
	authEvents := sortedKeys(r.authEvents)
	datastoreComponents := sortedKeysFloat(r.datastoreHealthValue)

	fmt.Fprintln(w, "# HELP itspace_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE itspace_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "itspace_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP itspace_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE itspace_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "itspace_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP itspace_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE itspace_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "itspace_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP itspace_course_events_total Course lifecycle events by type")
	fmt.Fprintln(w, "# TYPE itspace_course_events_total counter")
	for _, event := range courseEvents {
		fmt.Fprintf(w, "itspace_course_events_total{event=\"%s\"} %d\n", event, r.courseEvents[event])
	}

	fmt.Fprintln(w, "# HELP itspace_category_events_total Category lifecycle events by type")
	fmt.Fprintln(w, "# TYPE itspace_category_events_total counter")
	for _, event := range categoryEvents {
		fmt.Fprintf(w, "itspace_category_events_total{event=\"%s\"} %d\n", event, r.categoryEvents[event])
	}

	fmt.Fprintln(w, "# HELP itspace_chapter_events_total Chapter lifecycle events by type")
	fmt.Fprintln(w, "# TYPE itspace_chapter_events_total counter")
	for _, event := range chapterEvents {
		fmt.Fprintf(w, "itspace_chapter_events_total{event=\"%s\"} %d\n", event, r.chapterEvents[event])
	}

	fmt.Fprintln(w, "# HELP itspace_auth_events_total Auth events by type")
	fmt.Fprintln(w, "# TYPE itspace_auth_events_total counter")
	for _, event := range authEvents {
		fmt.Fprintf(w, "itspace_auth_events_total{event=\"%s\"} %d\n", event, r.authEvents[event])
	}

	fmt.Fprintln(w, "# HELP itspace_active_sessions Current number of live sessions")
	fmt.Fprintln(w, "# TYPE itspace_active_sessions gauge")
	fmt.Fprintf(w, "itspace_active_sessions %d\n", r.activeSessions.Load())

	fmt.Fprintln(w, "# HELP itspace_datastore_health Health status reported by storage dependencies (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE itspace_datastore_health gauge")
	for _, component := range datastoreComponents {
		value := r.datastoreHealthValue[component]
		status := r.datastoreHealthState[component]
		fmt.Fprintf(w, "itspace_datastore_health{component=\"%s\",status=\"%s\"} %f\n", component, status, value)
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(values map[string]uint64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysFloat(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveCourseEvent records a course lifecycle event on the default recorder.
func ObserveCourseEvent(event string) {
	defaultRecorder.ObserveCourseEvent(event)
}

// ObserveAuthEvent records an auth event on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// SetDatastoreHealth updates datastore health on the default recorder.
func SetDatastoreHealth(component, status string) {
	defaultRecorder.SetDatastoreHealth(component, status)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
