package worker

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewWorkerMetrics(t *testing.T) {
	m := globalTestMetrics

	if m.ConfigMetrics == nil {
		t.Error("Expected embedded config metrics to be initialized")
	}
	if m.JobRunsTotal == nil {
		t.Error("Expected JobRunsTotal to be initialized")
	}
	if m.JobDurationSeconds == nil {
		t.Error("Expected JobDurationSeconds to be initialized")
	}
	if m.JobLastSuccessTimestamp == nil {
		t.Error("Expected JobLastSuccessTimestamp to be initialized")
	}
}

func TestWorkerMetrics_RecordJobRun(t *testing.T) {
	m := globalTestMetrics

	before := counterValue(t, m.JobRunsTotal.WithLabelValues("publish_latest", "success"))
	m.RecordJobRun("publish_latest", "success")
	after := counterValue(t, m.JobRunsTotal.WithLabelValues("publish_latest", "success"))

	if after != before+1 {
		t.Errorf("Expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestWorkerMetrics_RecordJobRun_DistinctLabels(t *testing.T) {
	m := globalTestMetrics

	failBefore := counterValue(t, m.JobRunsTotal.WithLabelValues("flush_pending", "failure"))
	m.RecordJobRun("flush_pending", "failure")
	m.RecordJobRun("flush_pending", "success")
	failAfter := counterValue(t, m.JobRunsTotal.WithLabelValues("flush_pending", "failure"))

	if failAfter != failBefore+1 {
		t.Errorf("Expected failure counter to increase by exactly 1, got %v -> %v", failBefore, failAfter)
	}
}

func TestWorkerMetrics_RecordJobDuration(t *testing.T) {
	m := globalTestMetrics

	// Observing must not panic; histogram internals are Prometheus's
	// concern, the test only pins the label wiring.
	m.RecordJobDuration("publish_latest", 1.5)
	m.RecordJobDuration("publish_latest", 30)
	m.RecordJobDuration("flush_pending", 0.1)
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	m := globalTestMetrics

	m.RecordLastSuccess("publish_latest")

	g := m.JobLastSuccessTimestamp.WithLabelValues("publish_latest")
	dtoMetric := &dto.Metric{}
	if err := g.Write(dtoMetric); err != nil {
		t.Fatalf("Failed to read gauge: %v", err)
	}
	if dtoMetric.GetGauge().GetValue() <= 0 {
		t.Error("Expected last success timestamp to be set")
	}
}

func TestWorkerMetrics_ConcurrentAccess(t *testing.T) {
	m := globalTestMetrics

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordJobRun("concurrent", "success")
				m.RecordJobDuration("concurrent", 0.01)
				m.RecordLastSuccess("concurrent")
			}
		}()
	}
	wg.Wait()

	total := counterValue(t, m.JobRunsTotal.WithLabelValues("concurrent", "success"))
	if total < 1000 {
		t.Errorf("Expected at least 1000 recorded runs, got %v", total)
	}
}
