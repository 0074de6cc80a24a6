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

// findMetric はレジストリから指定名のメトリクスファミリーを取得する。
func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
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

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if NewCollector(reg) == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordAuthAttempt_LabelsByActionAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthAttempt("login", "success")
	c.RecordAuthAttempt("login", "success")
	c.RecordAuthAttempt("register", "invalid")

	mf := findMetric(t, reg, "diary_auth_attempts_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		action := labelValue(m, "action")
		outcome := labelValue(m, "outcome")
		val := m.GetCounter().GetValue()
		switch {
		case action == "login" && outcome == "success":
			if val != 2 {
				t.Errorf("login/success = %v, want 2", val)
			}
		case action == "register" && outcome == "invalid":
			if val != 1 {
				t.Errorf("register/invalid = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected labels %s/%s", action, outcome)
		}
	}
}

func TestRecordGatewayLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGatewayLatency(GatewayAuth, 150*time.Millisecond)
	c.RecordGatewayLatency(GatewayAuth, 250*time.Millisecond)

	mf := findMetric(t, reg, "diary_gateway_latency_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.39 || h.GetSampleSum() > 0.41 {
		t.Errorf("sample sum = %v, want ~0.4", h.GetSampleSum())
	}
}

func TestRecordGatewayFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGatewayFailure(GatewaySettings, "transport")

	mf := findMetric(t, reg, "diary_gateway_fail_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "gateway") != GatewaySettings || labelValue(m, "reason") != "transport" {
		t.Errorf("unexpected labels: %v", m.GetLabel())
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("value = %v, want 1", m.GetCounter().GetValue())
	}
}

func TestRecordDaySavedAndOnboarding(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDaySaved("great")
	c.RecordOnboardingCompleted()
	c.RecordOnboardingCompleted()

	saved := findMetric(t, reg, "diary_days_saved_total")
	if labelValue(saved.GetMetric()[0], "mood") != "great" {
		t.Errorf("mood label = %q", labelValue(saved.GetMetric()[0], "mood"))
	}

	onboarded := findMetric(t, reg, "diary_onboarding_completed_total")
	if v := onboarded.GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("onboarding completed = %v, want 2", v)
	}
}

func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(422)

	mf := findMetric(t, reg, "diary_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Errorf("expected 2 status codes, got %d", len(mf.GetMetric()))
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordDaySaved("okay")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "diary_days_saved_total") {
		t.Error("response should contain diary_days_saved_total")
	}
}
