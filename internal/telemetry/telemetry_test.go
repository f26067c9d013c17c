package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetricsRegistersUnderGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IncDispatchTotal("success")
	m.ObserveDispatchDuration("success", 0.2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !containsMetric(families, "gateway_dispatch_total") {
		t.Errorf("expected gateway_dispatch_total to be registered")
	}
	if !containsMetric(families, "gateway_dispatch_duration_seconds") {
		t.Errorf("expected gateway_dispatch_duration_seconds to be registered")
	}
}

func TestSetAccountStatusClearsOtherStatuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetAccountStatus("acc-1", "cooldown")
	m.SetAccountStatus("acc-1", "active")

	if v := gaugeValue(m.PoolAccountState, "acc-1", "active"); v != 1 {
		t.Errorf("active gauge = %v, want 1", v)
	}
	if v := gaugeValue(m.PoolAccountState, "acc-1", "cooldown"); v != 0 {
		t.Errorf("cooldown gauge = %v, want 0 after transitioning to active", v)
	}
}

func gaugeValue(vec *prometheus.GaugeVec, accountID, status string) float64 {
	var m dto.Metric
	_ = vec.WithLabelValues(accountID, status).Write(&m)
	return m.GetGauge().GetValue()
}

func containsMetric(families []*dto.MetricFamily, name string) bool {
	for _, f := range families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}
