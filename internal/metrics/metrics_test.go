package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCallCountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(OutcomeBlocked))
	RecordCall(OutcomeBlocked, 250*time.Millisecond, 0)
	after := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(OutcomeBlocked))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestRecordSkippedIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(FragmentsSkipped)
	RecordSkipped(0)
	RecordSkipped(-1)
	RecordSkipped(3)
	after := testutil.ToFloat64(FragmentsSkipped)
	if after-before != 3 {
		t.Fatalf("expected 3 skipped got %v", after-before)
	}
}
