package framecull

import (
	"testing"
)

func TestStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   string
	}{
		{StatusPending, "pending"},
		{StatusSelected, "selected"},
		{StatusRejectedDuplicateGlobal, "rejected_duplicate_global"},
		{StatusRejectedDuplicateIntra, "rejected_duplicate_intra"},
		{StatusRejectedTemporalQuota, "rejected_temporal_quota"},
		{StatusRejectedNoSubject, "rejected_no_subject"},
		{Status(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestCandidateMark_WriteOnce(t *testing.T) {
	t.Parallel()

	c := &Candidate{ID: "vid_frame_000001"}
	if c.Status() != StatusPending {
		t.Fatalf("fresh candidate status = %v, want pending", c.Status())
	}

	c.mark(StatusSelected, "")
	c.mark(StatusRejectedTemporalQuota, "bucket full")

	if c.Status() != StatusSelected {
		t.Errorf("status after second mark = %v, want the first disposition to stick", c.Status())
	}
	if c.Reason() != "" {
		t.Errorf("reason after second mark = %q, want empty", c.Reason())
	}
}

func TestCandidateHasTimeline(t *testing.T) {
	t.Parallel()

	known := &Candidate{TimelinePosition: 0.5}
	unknown := &Candidate{TimelinePosition: -1}

	if !known.HasTimeline() {
		t.Error("candidate at 0.5 reported unknown timeline")
	}
	if unknown.HasTimeline() {
		t.Error("candidate at -1 reported known timeline")
	}
}
