package framecull

import (
	"log/slog"
	"sort"
)

// SortCandidates orders candidates by score descending, breaking ties by id
// ascending. Equal pools therefore always rank identically.
func SortCandidates(cands []*Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].ID < cands[j].ID
	})
}

// RunGauntlet feeds sorted candidates through a fresh gauntlet one at a time
// until the target count is reached or the pool runs out, marking each fed
// candidate with its final status. Candidates already decided (no subject)
// are skipped, and candidates past the point where the target was met stay
// pending.
func RunGauntlet(sorted []*Candidate, cfg CategoryConfig) []*Candidate {
	g := NewGauntlet(cfg)
	for _, c := range sorted {
		if len(g.Selected()) >= cfg.TargetCount {
			break
		}
		if c.Status() != StatusPending {
			continue
		}
		st, reason := g.Admit(c)
		c.mark(st, reason)
		if st != StatusSelected {
			slog.Debug("framecull: rejected",
				"category", c.Category, "id", c.ID, "status", st.String(), "reason", reason)
		}
	}
	return g.Selected()
}
