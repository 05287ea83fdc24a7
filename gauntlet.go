package framecull

import (
	"fmt"
)

// Gauntlet is the stateful admission filter for one category pass. Candidates
// arrive in descending score order and run three stages in sequence:
//
//  1. global near-duplicate check against every selected frame
//  2. stricter near-duplicate check against selected frames from the same
//     source video
//  3. temporal quota limiting how much of one source's timeline bucket may
//     fill the selection
//
// The first failing stage decides the rejection status; only candidates that
// clear all three mutate the state. A Gauntlet must be used from a single
// goroutine.
type Gauntlet struct {
	cfg      CategoryConfig
	selected []*Candidate
	bySource map[string][]*Candidate
	buckets  map[string][]int
}

// NewGauntlet returns an empty gauntlet for a validated category config.
func NewGauntlet(cfg CategoryConfig) *Gauntlet {
	return &Gauntlet{
		cfg:      cfg,
		bySource: make(map[string][]*Candidate),
		buckets:  make(map[string][]int),
	}
}

// Selected returns the admitted candidates in admission order, which is also
// descending score order.
func (g *Gauntlet) Selected() []*Candidate { return g.selected }

// Admit runs the candidate through the three stages and returns its status,
// plus a human-readable detail for rejections. Admitted candidates are
// recorded so they constrain every later candidate.
func (g *Gauntlet) Admit(c *Candidate) (Status, string) {
	// Stage 1: reject near-identical frames no matter where they came from.
	for _, prev := range g.selected {
		dist, err := c.Hash.Distance(prev.Hash)
		if err == nil && dist < g.cfg.GlobalHashThreshold {
			return StatusRejectedDuplicateGlobal,
				fmt.Sprintf("hash within %d of %s (distance %d)", g.cfg.GlobalHashThreshold, prev.ID, dist)
		}
	}

	// Stage 2: frames from one video drift slowly, so siblings get a looser
	// distance cutoff that still catches same-scene repeats.
	for _, prev := range g.bySource[c.SourceID] {
		dist, err := c.Hash.Distance(prev.Hash)
		if err == nil && dist < g.cfg.IntraHashThreshold {
			return StatusRejectedDuplicateIntra,
				fmt.Sprintf("hash within %d of sibling %s (distance %d)", g.cfg.IntraHashThreshold, prev.ID, dist)
		}
	}

	// Stage 3: spread selections across each source's timeline.
	if g.cfg.Temporal.Enabled {
		if st, reason := g.admitTemporal(c); st != StatusSelected {
			return st, reason
		}
	}

	g.selected = append(g.selected, c)
	g.bySource[c.SourceID] = append(g.bySource[c.SourceID], c)
	if g.cfg.Temporal.Enabled {
		g.buckets[c.SourceID][g.bucketIndex(c.TimelinePosition)]++
	}
	return StatusSelected, ""
}

func (g *Gauntlet) admitTemporal(c *Candidate) (Status, string) {
	if !c.HasTimeline() {
		return StatusRejectedTemporalQuota, "timeline position unknown"
	}
	counts := g.buckets[c.SourceID]
	if counts == nil {
		counts = make([]int, g.cfg.Temporal.Buckets)
		g.buckets[c.SourceID] = counts
	}
	if limit := g.cfg.Temporal.SourceCap; limit > 0 {
		total := 0
		for _, n := range counts {
			total += n
		}
		if total >= limit {
			return StatusRejectedTemporalQuota,
				fmt.Sprintf("source %s already at cap %d", c.SourceID, limit)
		}
	}
	bucket := g.bucketIndex(c.TimelinePosition)
	if counts[bucket] >= g.cfg.Temporal.BucketCap {
		return StatusRejectedTemporalQuota,
			fmt.Sprintf("bucket %d/%d full for source %s", bucket+1, g.cfg.Temporal.Buckets, c.SourceID)
	}
	return StatusSelected, ""
}

// bucketIndex maps a timeline position in [0, 1] to a bucket. Position 1.0
// belongs to the last bucket, not a phantom one past it.
func (g *Gauntlet) bucketIndex(pos float64) int {
	idx := int(pos * float64(g.cfg.Temporal.Buckets))
	if idx >= g.cfg.Temporal.Buckets {
		idx = g.cfg.Temporal.Buckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
