package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"vaultgallery/internal/metrics"
	"vaultgallery/internal/vaulterr"
)

func TestRecordPersistLabels(t *testing.T) {
	before := testutil.ToFloat64(metrics.ItemsPersisted.WithLabelValues("image", "duplicate"))
	metrics.RecordPersist("image", false, nil)
	after := testutil.ToFloat64(metrics.ItemsPersisted.WithLabelValues("image", "duplicate"))
	if after-before != 1 {
		t.Fatalf("expected duplicate counter to grow by 1, got %v", after-before)
	}

	failedBefore := testutil.ToFloat64(metrics.ItemsPersisted.WithLabelValues("video", "failed"))
	metrics.RecordPersist("video", true, errors.New("boom"))
	if got := testutil.ToFloat64(metrics.ItemsPersisted.WithLabelValues("video", "failed")) - failedBefore; got != 1 {
		t.Fatalf("expected failed counter to grow by 1, got %v", got)
	}
}

func TestRecordSubmissionUsesErrorKind(t *testing.T) {
	counter := metrics.SubmissionsTotal.WithLabelValues("grouped", "rejected_capacity_exceeded")
	before := testutil.ToFloat64(counter)
	metrics.RecordSubmission(true, &vaulterr.CapacityExceededError{Capacity: 100})
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected rejection counter to grow by 1, got %v", got)
	}
}
