package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsOutcomesAndBacklog(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)

	metrics.ObserveDrain(150 * time.Millisecond)
	metrics.AddSucceeded(3)
	metrics.AddRescheduled(2)
	metrics.AddFailed(1)
	metrics.SetBacklog(4, 1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for outcome, want := range map[string]float64{"succeeded": 3, "rescheduled": 2, "failed": 1} {
		got, err := fetchCounterValue(mfs, "sync_write_outcomes_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%f, got %f", outcome, want, got)
		}
	}

	if got, err := fetchGaugeValue(mfs, "sync_queue_backlog", "status", "pending"); err != nil {
		t.Fatalf("fetch pending gauge: %v", err)
	} else if got != 4 {
		t.Fatalf("expected pending=4, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "sync_queue_backlog", "status", "failed"); err != nil {
		t.Fatalf("fetch failed gauge: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if sum := histogramSum(mfs, "sync_drain_duration_seconds"); sum <= 0 {
		t.Fatalf("expected drain duration sum > 0, got %f", sum)
	}
}

func TestSyncMetricsNilRegistererIsInert(t *testing.T) {
	metrics := NewSyncMetrics(nil)
	metrics.ObserveDrain(time.Second)
	metrics.AddSucceeded(1)
	metrics.SetBacklog(1, 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func histogramSum(mfs []*dto.MetricFamily, name string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetHistogram().GetSampleSum()
	}
	return 0
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
