package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// inferenceLatencySamples reads the provider's latency histogram sample
// count from the default registry.
func inferenceLatencySamples(t *testing.T, provider string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "ridepulse_inference_latency_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue(metric, "provider") == provider {
				return metric.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

func TestOllamaGenerateRecordsLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"SELECT 1"}}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}

	before := inferenceLatencySamples(t, provider.Name())
	if _, err := provider.Generate(context.Background(), "question"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if after := inferenceLatencySamples(t, provider.Name()); after != before+1 {
		t.Fatalf("latency samples = %d, want %d", after, before+1)
	}
}

func TestOpenAIGenerateRecordsLatencyOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL, APIKey: "key", Model: "m"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	before := inferenceLatencySamples(t, provider.Name())
	if _, err := provider.Generate(context.Background(), "question"); err == nil {
		t.Fatal("expected status error")
	}
	if after := inferenceLatencySamples(t, provider.Name()); after != before+1 {
		t.Fatalf("latency samples = %d, want %d", after, before+1)
	}
}
