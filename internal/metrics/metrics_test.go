package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauges(t *testing.T) {
	m := New()
	m.RecordIngested()
	m.RecordIngested()
	m.RecordRejected(ReasonNotObject)
	closeA := m.StreamOpened()
	closeB := m.StreamOpened()
	closeA()
	m.EventDelivered()

	if got := testutil.ToFloat64(m.recordsIngested); got != 2 {
		t.Fatalf("ingested=%v", got)
	}
	if got := testutil.ToFloat64(m.recordsRejected.WithLabelValues(ReasonNotObject)); got != 1 {
		t.Fatalf("rejected=%v", got)
	}
	if got := testutil.ToFloat64(m.streamsActive); got != 1 {
		t.Fatalf("active=%v", got)
	}
	if got := testutil.ToFloat64(m.streamsOpened); got != 2 {
		t.Fatalf("opened=%v", got)
	}
	closeB()
	if got := testutil.ToFloat64(m.streamsActive); got != 0 {
		t.Fatalf("active after close=%v", got)
	}
}

func TestHandlerExposesBufferGauge(t *testing.T) {
	m := New()
	n := 7
	m.TrackBufferLength(func() int { return n })
	m.ObserveBatchCommit(time.Millisecond, 1, 10)
	m.ObserveRead(time.Microsecond, 42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"pubrt_buffer_records 7",
		"pubrt_storage_read_bytes_total 42",
		"pubrt_storage_batch_commit_seconds_count 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
