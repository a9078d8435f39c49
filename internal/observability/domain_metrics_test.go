package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGenerationLoopCountsResultLabels(t *testing.T) {
	// The loop helpers take free-form result labels; the generators
	// report aborted and engine_unavailable alongside success/exhausted.
	for _, result := range []string{"success", "exhausted", "aborted", "engine_unavailable"} {
		counter := generationLoopsTotal.WithLabelValues("sql", result)
		before := testutil.ToFloat64(counter)
		ObserveGenerationLoop("sql", result)
		if got := testutil.ToFloat64(counter); got != before+1 {
			t.Fatalf("generation loops %q = %v, want %v", result, got, before+1)
		}
	}
}

func TestObserveInferenceLatencyRecordsSample(t *testing.T) {
	before := testutil.CollectAndCount(inferenceLatencySeconds)
	ObserveInferenceLatency("test-provider", 250*time.Millisecond)
	if got := testutil.CollectAndCount(inferenceLatencySeconds); got <= before {
		t.Fatalf("inference latency series = %d, want more than %d", got, before)
	}
}
