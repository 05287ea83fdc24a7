package framecull

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Report is the machine-readable audit record for one run: every candidate
// with its score, hash and final status, every input defect, and the resolved
// policy each category ran under.
type Report struct {
	RunID      string           `json:"run_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Categories []CategoryReport `json:"categories"`
}

// CategoryReport covers one category pass.
type CategoryReport struct {
	Category string `json:"category"`

	// Error carries the config or scan failure for a pass that never ran.
	Error string `json:"error,omitempty"`

	Config        CategoryConfig    `json:"config"`
	SelectedCount int               `json:"selected_count"`
	Partial       bool              `json:"partial"`
	Candidates    []CandidateReport `json:"candidates,omitempty"`
	Defects       []Defect          `json:"defects,omitempty"`
}

// CandidateReport is one candidate's audit line, in rank order.
type CandidateReport struct {
	ID               string         `json:"id"`
	Source           string         `json:"source"`
	FrameIndex       int            `json:"frame_index"`
	TimelinePosition float64        `json:"timeline_position"`
	Rank             int            `json:"rank,omitempty"`
	Score            float64        `json:"score"`
	Breakdown        ScoreBreakdown `json:"breakdown"`
	Hash             string         `json:"hash"`
	Status           string         `json:"status"`
	Reason           string         `json:"reason,omitempty"`
}

// BuildReport flattens a run result into its report form. Candidates appear
// in rank order; selected ones carry their 1-based rank.
func BuildReport(res *Result) Report {
	rep := Report{
		RunID:     res.RunID,
		CreatedAt: time.Now().UTC(),
	}

	for _, cat := range res.Categories {
		cr := CategoryReport{
			Category:      cat.Category,
			Config:        cat.Config,
			SelectedCount: len(cat.Selected),
			Partial:       cat.Partial,
			Defects:       cat.Defects,
		}
		rank := 0
		for _, c := range cat.Candidates {
			line := CandidateReport{
				ID:               c.ID,
				Source:           c.SourceID,
				FrameIndex:       c.FrameIndex,
				TimelinePosition: c.TimelinePosition,
				Score:            c.Score,
				Breakdown:        c.Breakdown,
				Hash:             HashHex(c.Hash),
				Status:           c.Status().String(),
				Reason:           c.Reason(),
			}
			if c.Status() == StatusSelected {
				rank++
				line.Rank = rank
			}
			cr.Candidates = append(cr.Candidates, line)
		}
		rep.Categories = append(rep.Categories, cr)
	}

	failed := make([]string, 0, len(res.Failed))
	for name := range res.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		rep.Categories = append(rep.Categories, CategoryReport{
			Category: name,
			Error:    res.Failed[name].Error(),
		})
	}
	return rep
}

// WriteFile writes the report as indented JSON.
func (r Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
