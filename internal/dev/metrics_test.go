package dev

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/livedev/internal/build"
	"github.com/vango-dev/livedev/internal/reload"
	"github.com/vango-dev/livedev/internal/watch"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_ObserveBuild(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	rule, err := watch.NewRule("src/*.js", "make", false, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	m.ObserveBuild(build.Report{Rule: rule, Outcome: build.OutcomeSuccess, Duration: time.Second})
	m.ObserveBuild(build.Report{Rule: rule, Outcome: build.OutcomeFailure, Duration: time.Second})
	m.ObserveBuild(build.Report{Rule: rule, Outcome: build.OutcomeNoCommand})

	if got := metricCounterValue(t, m.buildsTotal.WithLabelValues("src/*.js", "success")); got != 1 {
		t.Errorf("builds_total(success) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.buildsTotal.WithLabelValues("src/*.js", "failure")); got != 1 {
		t.Errorf("builds_total(failure) = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.buildDuration.WithLabelValues("src/*.js")); got != 2 {
		t.Errorf("build_duration_seconds count = %v, want 2", got)
	}
}

func TestMetrics_HubHooks(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.ObserveBroadcast(reload.Update{Path: "a"}, 2)
	m.ObserveBroadcast(reload.Failure{Message: "b"}, 2)
	m.ObserveBroadcast(reload.Failure{Message: "c"}, 2)
	m.SetClients(3)
	m.ClientDropped()

	if got := metricCounterValue(t, m.broadcastsTotal.WithLabelValues("update")); got != 1 {
		t.Errorf("broadcasts_total(update) = %v", got)
	}
	if got := metricCounterValue(t, m.broadcastsTotal.WithLabelValues("error")); got != 2 {
		t.Errorf("broadcasts_total(error) = %v", got)
	}
	if got := metricGaugeValue(t, m.connectedClients); got != 3 {
		t.Errorf("connected_clients = %v", got)
	}
	if got := metricCounterValue(t, m.droppedClients); got != 1 {
		t.Errorf("dropped_clients_total = %v", got)
	}
}

func TestMetrics_Instrument(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	h := m.Instrument("static")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/", "/", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("static", "200")); got != 2 {
		t.Errorf("requests(200) = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("static", "404")); got != 1 {
		t.Errorf("requests(404) = %v, want 1", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	m.ObserveBuild(build.Report{})
	m.ObserveBroadcast(reload.Update{}, 0)
	m.SetClients(1)
	m.ClientDropped()

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if h := m.Instrument("x")(next); h == nil {
		t.Error("Instrument on nil metrics returned nil handler")
	}
}
