package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStockMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStockMetrics(reg)

	metrics.IncApplied("transfer_out")
	metrics.IncRejected("sale_out", "INSUFFICIENT_STOCK")
	metrics.IncDeduplicated("transfer_in")
	metrics.IncRetry()
	metrics.ObserveDuration("replenish_truck", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "stock_movements_applied_total", "type", "transfer_out"); err != nil {
		t.Fatalf("fetch applied: %v", err)
	} else if got != 1 {
		t.Fatalf("expected applied=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stock_movements_rejected_total", "code", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stock_movements_deduplicated_total", "type", "transfer_in"); err != nil {
		t.Fatalf("fetch deduplicated: %v", err)
	} else if got != 1 {
		t.Fatalf("expected deduplicated=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "stock_operation_duration_seconds", "operation", "replenish_truck"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestStockMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewStockMetrics(nil)
	metrics.IncApplied("transfer_out")
	metrics.IncRetry()

	var nilMetrics *StockMetrics
	nilMetrics.IncApplied("transfer_out")
	nilMetrics.ObserveDuration("replenish_truck", time.Second)
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

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
