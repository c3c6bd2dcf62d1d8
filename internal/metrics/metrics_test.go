package metrics

import (
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsInstance(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegistry("test-service", registry)
	if m == nil {
		t.Fatal("NewWithRegistry() returned nil")
	}

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal should not be nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration should not be nil")
	}
	if m.RequestsInFlight == nil {
		t.Error("RequestsInFlight should not be nil")
	}
	if m.ErrorsTotal == nil {
		t.Error("ErrorsTotal should not be nil")
	}
	if m.FlowExecutionsTotal == nil {
		t.Error("FlowExecutionsTotal should not be nil")
	}
	if m.FlowNodeResultsTotal == nil {
		t.Error("FlowNodeResultsTotal should not be nil")
	}
	if m.FlowExecutionDuration == nil {
		t.Error("FlowExecutionDuration should not be nil")
	}
	if m.ScenarioExecutionsTotal == nil {
		t.Error("ScenarioExecutionsTotal should not be nil")
	}
	if m.ScenarioStepResultsTotal == nil {
		t.Error("ScenarioStepResultsTotal should not be nil")
	}
	if m.ScenarioActiveExecutions == nil {
		t.Error("ScenarioActiveExecutions should not be nil")
	}
	if m.ServiceUptime == nil {
		t.Error("ServiceUptime should not be nil")
	}
	if m.ServiceInfo == nil {
		t.Error("ServiceInfo should not be nil")
	}
}

func TestRecordFlowAndScenarioMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry("test-service", registry)

	m.RecordFlowExecution("test-service", "completed", 0)
	m.RecordFlowNodeResult("test-service", "scenario", "passed")
	m.RecordScenarioExecution("test-service", "completed")
	m.RecordScenarioStepResult("test-service", "passed")
	m.SetActiveExecutions(3)

	if count := testutil.ToFloat64(m.FlowExecutionsTotal.WithLabelValues("test-service", "completed")); count != 1 {
		t.Errorf("expected 1 flow execution recorded, got %v", count)
	}
	if count := testutil.ToFloat64(m.ScenarioActiveExecutions); count != 3 {
		t.Errorf("expected active executions gauge to be 3, got %v", count)
	}
}

func TestEnabled(t *testing.T) {
	savedMetrics := os.Getenv("METRICS_ENABLED")
	savedEnv := os.Getenv("APP_ENV")
	defer func() {
		if savedMetrics != "" {
			os.Setenv("METRICS_ENABLED", savedMetrics)
		} else {
			os.Unsetenv("METRICS_ENABLED")
		}
		if savedEnv != "" {
			os.Setenv("APP_ENV", savedEnv)
		} else {
			os.Unsetenv("APP_ENV")
		}
	}()

	t.Run("explicitly enabled", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "true")
		if !Enabled() {
			t.Error("Enabled() should return true when METRICS_ENABLED=true")
		}
	})

	t.Run("enabled with 1", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "1")
		if !Enabled() {
			t.Error("Enabled() should return true when METRICS_ENABLED=1")
		}
	})

	t.Run("explicitly disabled", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "false")
		if Enabled() {
			t.Error("Enabled() should return false when METRICS_ENABLED=false")
		}
	})

	t.Run("default in development", func(t *testing.T) {
		os.Unsetenv("METRICS_ENABLED")
		os.Setenv("APP_ENV", "development")
		if !Enabled() {
			t.Error("Enabled() should return true by default in development")
		}
	})

	t.Run("default in production", func(t *testing.T) {
		os.Unsetenv("METRICS_ENABLED")
		os.Setenv("APP_ENV", "production")
		if Enabled() {
			t.Error("Enabled() should return false by default in production")
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "TRUE")
		if !Enabled() {
			t.Error("Enabled() should be case insensitive")
		}
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		os.Setenv("METRICS_ENABLED", "  true  ")
		if !Enabled() {
			t.Error("Enabled() should trim whitespace")
		}
	})
}

func TestInitAndGlobal(t *testing.T) {
	t.Run("Init creates or returns global instance", func(t *testing.T) {
		m := Init("test-service")
		if m == nil {
			t.Fatal("Init() returned nil")
		}
	})

	t.Run("Init is idempotent", func(t *testing.T) {
		m1 := Init("service-1")
		m2 := Init("service-2")
		if m1 != m2 {
			t.Error("Init() should return same instance on subsequent calls")
		}
	})

	t.Run("Global returns same instance as Init", func(t *testing.T) {
		m1 := Init("test-service")
		m2 := Global()
		if m1 != m2 {
			t.Error("Global() should return same instance as Init()")
		}
	})
}
