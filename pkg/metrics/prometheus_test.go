package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordRequest("ok")
	r.RecordRequest("ok")
	r.RecordRequest("failed")
	r.RecordMarketLookup("error")
	r.RecordStage("retrieval", "ok", 0.002)
	r.RecordRetrieved(5)

	if got := testutil.ToFloat64(r.requests.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(r.marketLookups.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed lookup, got %v", got)
	}
	if n := testutil.CollectAndCount(r.stageDuration); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}
}
