package framecull

import (
	"github.com/corona10/goimagehash"
)

// Status is the terminal disposition of a candidate after a category pass.
// It is write-once: the gauntlet walk assigns it exactly once, and candidates
// the walk never reaches stay pending.
type Status int

const (
	StatusPending Status = iota
	StatusSelected
	StatusRejectedDuplicateGlobal
	StatusRejectedDuplicateIntra
	StatusRejectedTemporalQuota
	StatusRejectedNoSubject
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSelected:
		return "selected"
	case StatusRejectedDuplicateGlobal:
		return "rejected_duplicate_global"
	case StatusRejectedDuplicateIntra:
		return "rejected_duplicate_intra"
	case StatusRejectedTemporalQuota:
		return "rejected_temporal_quota"
	case StatusRejectedNoSubject:
		return "rejected_no_subject"
	default:
		return "unknown"
	}
}

// Candidate is one extracted frame under consideration for the curated set.
// Score, Breakdown and Hash are computed once during the scoring pass and
// never revised afterwards.
type Candidate struct {
	// ID is the frame's file stem, unique within its category and stable
	// across runs of the same pool.
	ID string

	// Path is the frame's location on disk.
	Path string

	// SourceID names the originating video, parsed from the filename.
	SourceID string

	// FrameIndex is the extraction counter parsed from the filename.
	FrameIndex int

	// TimelinePosition is FrameIndex normalized by the source's highest known
	// index, in [0, 1]. Negative when the position is unknown.
	TimelinePosition float64

	// Category names the pool this candidate belongs to.
	Category string

	Regions   SubjectRegions
	Score     float64
	Breakdown ScoreBreakdown
	Hash      *goimagehash.ImageHash

	status Status
	reason string
}

// Status returns the candidate's disposition.
func (c *Candidate) Status() Status { return c.status }

// Reason returns the human-readable detail behind a rejection, empty for
// pending and selected candidates.
func (c *Candidate) Reason() string { return c.reason }

// HasTimeline reports whether the candidate's position within its source
// video is known.
func (c *Candidate) HasTimeline() bool { return c.TimelinePosition >= 0 }

// mark assigns the final status. Later calls on an already-decided candidate
// are ignored so a disposition can never regress.
func (c *Candidate) mark(s Status, reason string) {
	if c.status != StatusPending {
		return
	}
	c.status = s
	c.reason = reason
}
