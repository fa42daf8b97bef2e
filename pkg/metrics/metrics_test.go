package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/cart", 200, 250*time.Millisecond)
	m.Observe("GET", "/api/v1/cart", 200, 10*time.Millisecond)
	m.Observe("POST", "", 500, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "storefront_http_requests_total", map[string]string{"route": "/api/v1/cart", "status": "200"})
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "storefront_http_requests_total", map[string]string{"route": "unknown", "status": "500"})
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "storefront_http_request_duration_seconds", map[string]string{"route": "/api/v1/cart"})
	require.NoError(t, err)
	require.Greater(t, sum, 0.25)
}

func TestOrderAndOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	orders := NewOrderMetrics(reg)
	outbox := NewOutboxMetrics(reg)

	orders.Checkout("cart", "ok")
	orders.Transition("pending", "confirmed")
	outbox.Published("order.created")
	outbox.Failed("order.created")
	outbox.DeadLettered("order.created")
	outbox.ObserveBatch(time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	for name, labels := range map[string]map[string]string{
		"storefront_checkouts_total":                {"mode": "cart", "result": "ok"},
		"storefront_order_status_transitions_total": {"from": "pending", "to": "confirmed"},
		"storefront_outbox_published_total":         {"event_type": "order.created"},
		"storefront_outbox_publish_failures_total":  {"event_type": "order.created"},
		"storefront_outbox_dead_lettered_total":     {"event_type": "order.created"},
	} {
		got, err := fetchCounterValue(mfs, name, labels)
		require.NoError(t, err, name)
		require.Equal(t, float64(1), got, name)
	}
}

func TestJobMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.Observe("outbox-retention", 20*time.Millisecond, nil)
	m.Observe("outbox-retention", time.Millisecond, fmt.Errorf("boom"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	for _, result := range []string{"ok", "error"} {
		got, err := fetchCounterValue(mfs, "storefront_job_runs_total", map[string]string{"job": "outbox-retention", "result": result})
		require.NoError(t, err)
		require.Equal(t, float64(1), got, result)
	}
	sum, err := fetchHistogramSum(mfs, "storefront_job_duration_seconds", map[string]string{"job": "outbox-retention"})
	require.NoError(t, err)
	require.Greater(t, sum, 0.02)
}

func TestNilRecordersAreNoops(t *testing.T) {
	var h *HTTPMetrics
	var o *OrderMetrics
	var ob *OutboxMetrics
	var j *JobMetrics
	require.Nil(t, NewHTTPMetrics(nil))
	require.NotPanics(t, func() {
		h.Observe("GET", "/", 200, time.Second)
		o.Checkout("cart", "ok")
		o.Transition("a", "b")
		ob.Published("x")
		ob.ObserveBatch(time.Second)
		j.Observe("x", time.Second, nil)
	})
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
