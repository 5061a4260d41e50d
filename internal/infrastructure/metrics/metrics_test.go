package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.RecordTransition("finding", "close", "ok")
	r.RecordTransition("finding", "close", "ok")
	r.RecordTransition("finding", "close", "rejected")
	r.RecordNotification("finding_closed", "webhook", errors.New("boom"))
	r.RecordFindings(3)
	r.RecordFindings(0)

	if got := testutil.ToFloat64(r.transitions.WithLabelValues("finding", "close", "ok")); got != 2 {
		t.Fatalf("transitions ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.notifications.WithLabelValues("finding_closed", "webhook", "error")); got != 1 {
		t.Fatalf("notifications error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.findingsDetected); got != 3 {
		t.Fatalf("findings detected = %v, want 3", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordTransition("risk", "mitigate", "ok")
	r.RecordNotification("x", "nats", nil)
	r.RecordFindings(1)
	r.ObserveIndicators(0.1)
}
