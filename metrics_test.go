package authcore

import (
	"context"
	"sync"
	"testing"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0 from nil metrics, got %d", got)
	}
	if s := m.Snapshot(); len(s) != 0 {
		t.Fatalf("expected empty snapshot from nil metrics, got %d entries", len(s))
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestMetricsSnapshotUsesStableNames(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRefreshInvalid)

	s := m.Snapshot()
	if s["refresh_invalid"] != 1 {
		t.Fatalf("expected refresh_invalid=1, got %v", s)
	}
	if _, ok := s["login_success"]; !ok {
		t.Fatal("snapshot missing login_success key")
	}
}

func TestEngineMetricsCountLoginOutcomes(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Metrics.Enabled = true
	})

	registerVerified(t, f, "alice@example.com", "alice", "correct horse battery")

	if _, err := f.engine.Login(context.Background(), "alice@example.com", "wrong", ""); err == nil {
		t.Fatal("expected login failure")
	}
	if _, err := f.engine.Login(context.Background(), "alice@example.com", "correct horse battery", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s := f.engine.MetricsSnapshot()
	if s["register_success"] != 1 {
		t.Fatalf("expected register_success=1, got %d", s["register_success"])
	}
	if s["login_failure"] != 1 {
		t.Fatalf("expected login_failure=1, got %d", s["login_failure"])
	}
	if s["login_success"] != 1 {
		t.Fatalf("expected login_success=1, got %d", s["login_success"])
	}
}

func TestMetricsDisabledSnapshotEmpty(t *testing.T) {
	f := newTestEngine(t, nil)
	registerVerified(t, f, "alice@example.com", "alice", "correct horse battery")

	if s := f.engine.MetricsSnapshot(); len(s) != 0 {
		t.Fatalf("expected empty snapshot with metrics disabled, got %v", s)
	}
}
