package mipsobs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequestIncrementsErrorsOnNonOkStatus(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("Search", "ok", 5*time.Millisecond)
	m.RecordRequest("Search", "invalid_argument", 2*time.Millisecond)

	if got := testutil.ToFloat64(m.RequestErrors.WithLabelValues("Search")); got != 1 {
		t.Fatalf("RequestErrors = %v, want 1", got)
	}
}

func TestRecordBuildSetsVectorCountGauge(t *testing.T) {
	m := NewMetrics()
	m.RecordBuild("hkmeans", 1000, 50*time.Millisecond)

	if got := testutil.ToFloat64(m.IndexVectorCount.WithLabelValues("hkmeans")); got != 1000 {
		t.Fatalf("IndexVectorCount = %v, want 1000", got)
	}
}
