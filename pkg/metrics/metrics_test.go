package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("requests_total", "Total requests.")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %d", c.Value())
	}

	g := r.Gauge("inflight", "")
	g.Set(5)
	g.Dec()
	if g.Value() != 4 {
		t.Errorf("gauge = %d", g.Value())
	}

	// Same name returns the same metric.
	if r.Counter("requests_total", "") != c {
		t.Error("counter not reused")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("http_requests_total", "method", "GET", "code", "200")
	want := `http_requests_total{method="GET",code="200"}`
	if got != want {
		t.Errorf("got %s", got)
	}
	if WithLabels("plain") != "plain" {
		t.Error("no labels should return the name unchanged")
	}
	if WithLabels("odd", "k") != "odd" {
		t.Error("odd label pairs should return the name unchanged")
	}
}

func TestRenderFamilies(t *testing.T) {
	r := New()
	r.Counter(WithLabels("http_requests_total", "code", "200"), "Requests by status.").Add(7)
	r.Counter(WithLabels("http_requests_total", "code", "500"), "").Inc()
	r.Gauge("documents_loaded", "Whether documents are loaded.").Set(1)

	out := r.Render()
	for _, want := range []string{
		"# HELP http_requests_total Requests by status.",
		"# TYPE http_requests_total counter",
		`http_requests_total{code="200"} 7`,
		`http_requests_total{code="500"} 1`,
		"# TYPE documents_loaded gauge",
		"documents_loaded 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderHistogram(t *testing.T) {
	r := New()
	h := r.Histogram("query_seconds", "Query latency.", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		"# TYPE query_seconds histogram",
		`query_seconds_bucket{le="0.1"} 1`,
		`query_seconds_bucket{le="1"} 2`,
		`query_seconds_bucket{le="+Inf"} 3`,
		"query_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestHandlerContentType(t *testing.T) {
	r := New()
	r.Counter("x_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "x_total 1") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
