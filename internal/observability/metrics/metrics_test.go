package metrics

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObserveRequestAggregatesByLabel(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/courses", 200, 10*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/courses", 200, 15*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/courses/42", 404, 5*time.Millisecond)

	var output strings.Builder
	recorder.Write(&output)
	text := output.String()

	if !strings.Contains(text, `itspace_http_requests_total{method="GET",path="/api/courses",status="200"} 2`) {
		t.Fatalf("expected aggregated request counter, got:\n%s", text)
	}
	if !strings.Contains(text, `itspace_http_requests_total{method="GET",path="/api/courses/:id",status="404"} 1`) {
		t.Fatalf("expected normalized id path, got:\n%s", text)
	}
}

func TestCourseAndAuthEvents(t *testing.T) {
	recorder := New()
	recorder.ObserveCourseEvent("created")
	recorder.ObserveCourseEvent("created")
	recorder.ObserveCourseEvent("deleted")
	recorder.ObserveAuthEvent("login_success")
	recorder.ObserveAuthEvent("")

	events := recorder.CourseEventCounts()
	if events["created"] != 2 || events["deleted"] != 1 {
		t.Fatalf("unexpected course events: %+v", events)
	}
	auth := recorder.AuthEventCounts()
	if auth["login_success"] != 1 || auth["unknown"] != 1 {
		t.Fatalf("unexpected auth events: %+v", auth)
	}
}

func TestActiveSessionsGaugeNeverNegative(t *testing.T) {
	recorder := New()
	recorder.SessionClosed()
	if got := recorder.ActiveSessions(); got != 0 {
		t.Fatalf("expected gauge to stay at 0, got %d", got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.SessionOpened()
			recorder.SessionClosed()
		}()
	}
	wg.Wait()
	if got := recorder.ActiveSessions(); got != 0 {
		t.Fatalf("expected balanced gauge, got %d", got)
	}
}

func TestDatastoreHealthExport(t *testing.T) {
	recorder := New()
	recorder.SetDatastoreHealth("postgres", "ok")
	recorder.SetDatastoreHealth("redis", "unreachable")

	var output strings.Builder
	recorder.Write(&output)
	text := output.String()

	if !strings.Contains(text, `itspace_datastore_health{component="postgres",status="ok"} 1.000000`) {
		t.Fatalf("expected healthy postgres gauge, got:\n%s", text)
	}
	if !strings.Contains(text, `itspace_datastore_health{component="redis",status="unreachable"} -1.000000`) {
		t.Fatalf("expected degraded redis gauge, got:\n%s", text)
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("GET", "/healthz", 200, time.Millisecond)

	request := httptest.NewRequest("GET", "/metrics", nil)
	response := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(response, request)

	if got := response.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(response.Body.String(), "itspace_http_requests_total") {
		t.Fatalf("expected exposition output, got:\n%s", response.Body.String())
	}
}
