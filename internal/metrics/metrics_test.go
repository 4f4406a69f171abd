package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は名前が一致するメトリクスファミリーを返す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_IncrementsCounterWithLabels はリクエストカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/feedback/", 200, 10*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/feedback/", 200, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/feedback/{id}/", 404, 5*time.Millisecond)

	mf := findMetricFamily(t, reg, "feedbackapp_http_requests_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		val := m.GetCounter().GetValue()
		switch labelValue(m, "status") {
		case "200":
			if val != 2 {
				t.Errorf("http_requests_total{status=200} = %v, want 2", val)
			}
			if got := labelValue(m, "route"); got != "/api/feedback/" {
				t.Errorf("route = %q, want %q", got, "/api/feedback/")
			}
		case "404":
			if val != 1 {
				t.Errorf("http_requests_total{status=404} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected status label: %s", labelValue(m, "status"))
		}
	}
}

// TestRecordHTTPRequest_ObservesHistogram はリクエスト処理時間のヒストグラムに値が記録されることを検証する。
func TestRecordHTTPRequest_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodPost, "/api/feedback/", 201, 100*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/api/feedback/", 400, 200*time.Millisecond)

	mf := findMetricFamily(t, reg, "feedbackapp_http_request_duration_seconds")
	if len(mf.GetMetric()) != 1 {
		t.Fatalf("expected 1 label combination, got %d", len(mf.GetMetric()))
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if sum := h.GetSampleSum(); sum < 0.29 || sum > 0.31 {
		t.Errorf("sample sum = %v, want ~0.3", sum)
	}
}

// TestRecordFeedbackMutation_IncrementsCounterPerOp は変更操作カウンタが操作種別ごとに増加することを検証する。
func TestRecordFeedbackMutation_IncrementsCounterPerOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedbackMutation(OpCreate)
	c.RecordFeedbackMutation(OpCreate)
	c.RecordFeedbackMutation(OpDelete)

	mf := findMetricFamily(t, reg, "feedbackapp_feedback_mutations_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "op")] = m.GetCounter().GetValue()
	}
	if got[OpCreate] != 2 {
		t.Errorf("mutations{op=create} = %v, want 2", got[OpCreate])
	}
	if got[OpDelete] != 1 {
		t.Errorf("mutations{op=delete} = %v, want 1", got[OpDelete])
	}
	if _, ok := got[OpUpdate]; ok {
		t.Error("mutations{op=update} should not be recorded")
	}
}

// TestRecordValidationFailure_IncrementsCounter はバリデーションエラーカウンタが増加することを検証する。
func TestRecordValidationFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordValidationFailure()
	c.RecordValidationFailure()
	c.RecordValidationFailure()

	mf := findMetricFamily(t, reg, "feedbackapp_validation_failures_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 3 {
		t.Errorf("validation_failures_total = %v, want 3", val)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	c.RecordFeedbackMutation(OpUpdate)
	c.RecordValidationFailure()

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"feedbackapp_http_requests_total",
		"feedbackapp_http_request_duration_seconds",
		"feedbackapp_feedback_mutations_total",
		"feedbackapp_validation_failures_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordValidationFailure()
	c2.RecordValidationFailure()
	c2.RecordValidationFailure()

	val1 := findMetricFamily(t, reg1, "feedbackapp_validation_failures_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findMetricFamily(t, reg2, "feedbackapp_validation_failures_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 validation_failures = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 validation_failures = %v, want 2", val2)
	}
}
