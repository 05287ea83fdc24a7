package framecull

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// CategoryResult is the outcome of one category pass.
type CategoryResult struct {
	Category string

	// Config is the resolved policy the pass ran under.
	Config CategoryConfig

	// Candidates holds every scored candidate in rank order, each carrying
	// its final status.
	Candidates []*Candidate

	// Selected is the admitted subset, best first.
	Selected []*Candidate

	Defects []Defect

	// Partial marks a pass that ran out of candidates before filling its
	// target. The selection is still valid, just short.
	Partial bool
}

// Result is the outcome of a full run across categories.
type Result struct {
	RunID      string
	Categories []CategoryResult

	// Failed maps category names to the error that prevented their pass.
	// A failed category never blocks the others.
	Failed map[string]error
}

// Run executes the pipeline: scan each configured category, score its pool,
// rank it and walk the gauntlet. Categories run concurrently and are isolated
// from each other's failures; Run itself only errors when the context is
// canceled.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.defaults()

	names := make([]string, 0, len(cfg.Categories))
	for name := range cfg.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{RunID: uuid.New().String(), Failed: make(map[string]error)}

	// Resolve and validate every category before any pixel work, so a
	// defective policy fails its category up front.
	type pass struct {
		name string
		cfg  CategoryConfig
		pool []*Candidate
	}
	var passes []pass
	manifest := make(map[string]int)
	for _, name := range names {
		ccfg := cfg.Categories[name]
		ccfg.defaults(name)
		if err := ccfg.Validate(); err != nil {
			res.Failed[name] = err
			slog.Error("framecull: category config rejected", "category", name, "error", err)
			continue
		}
		pool, mf, err := ScanCategory(filepath.Join(cfg.InputDir, name), name)
		if err != nil {
			res.Failed[name] = err
			slog.Error("framecull: category scan failed", "category", name, "error", err)
			continue
		}
		for src, top := range mf {
			if top > manifest[src] {
				manifest[src] = top
			}
		}
		passes = append(passes, pass{name: name, cfg: ccfg, pool: pool})
	}

	// One source's frames may be split across category folders; merging the
	// manifests keeps the timeline denominator independent of the split.
	for i := range passes {
		applyTimeline(passes[i].pool, manifest)
	}

	results := make([]CategoryResult, len(passes))
	var wg sync.WaitGroup
	for i := range passes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := passes[i]
			results[i] = cfg.runCategory(ctx, p.name, p.cfg, p.pool)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Categories = results
	return res, nil
}

func (cfg *Config) runCategory(ctx context.Context, name string, ccfg CategoryConfig, pool []*Candidate) CategoryResult {
	scored, defects := cfg.scorePool(ctx, ccfg, pool)
	SortCandidates(scored)
	selected := RunGauntlet(scored, ccfg)
	sort.Slice(defects, func(i, j int) bool { return defects[i].ID < defects[j].ID })

	r := CategoryResult{
		Category:   name,
		Config:     ccfg,
		Candidates: scored,
		Selected:   selected,
		Defects:    defects,
		Partial:    len(selected) < ccfg.TargetCount,
	}
	slog.Info("framecull: category done",
		"category", name,
		"selected", len(selected),
		"pool", len(scored),
		"defects", len(defects),
		"partial", r.Partial)
	return r
}

// scorePool loads and scores the candidates behind a bounded worker pool.
// Each candidate either joins the scored slice or becomes a defect.
func (cfg *Config) scorePool(ctx context.Context, ccfg CategoryConfig, pool []*Candidate) ([]*Candidate, []Defect) {
	sem := make(chan struct{}, cfg.Workers)
	var mu sync.Mutex
	var scored []*Candidate
	var defects []Defect

	var wg sync.WaitGroup
	for _, c := range pool {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(c *Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			d := scoreOne(c, ccfg)
			mu.Lock()
			defer mu.Unlock()
			if d != nil {
				defects = append(defects, *d)
				return
			}
			scored = append(scored, c)
		}(c)
	}
	wg.Wait()

	return scored, defects
}

// scoreOne loads, checks and scores a single candidate, returning a defect
// when the frame cannot enter the pool. Recovers from panics to protect the
// worker pool.
func scoreOne(c *Candidate, ccfg CategoryConfig) (defect *Defect) {
	defer func() {
		if r := recover(); r != nil {
			defect = &Defect{ID: c.ID, Path: c.Path, Reason: fmt.Sprintf("panic while scoring: %v", r)}
		}
	}()

	data, img, err := readFrame(c.Path)
	if err != nil {
		return &Defect{ID: c.ID, Path: c.Path, Reason: err.Error()}
	}
	if taint, field := ExtractProvenance(data).Contaminated(); taint {
		return &Defect{ID: c.ID, Path: c.Path, Reason: fmt.Sprintf("foreign provenance: %q", field)}
	}
	if w := img.Bounds().Dx(); ccfg.MinFrameWidth > 0 && w < ccfg.MinFrameWidth {
		return &Defect{ID: c.ID, Path: c.Path, Reason: fmt.Sprintf("width %d below minimum %d", w, ccfg.MinFrameWidth)}
	}

	regions, err := loadRegions(img, c.Path)
	if err != nil {
		return &Defect{ID: c.ID, Path: c.Path, Reason: err.Error()}
	}
	if regions.Mask != nil {
		b := img.Bounds()
		minBlob := int(float64(b.Dx()*b.Dy()) * maskBlobFraction)
		switch n := maskRegionCount(regions.Mask, minBlob); {
		case n == 0:
			return &Defect{ID: c.ID, Path: c.Path, Reason: "empty subject mask: no blob above the area floor"}
		case n > ccfg.MaxMaskRegions:
			return &Defect{ID: c.ID, Path: c.Path, Reason: fmt.Sprintf("subject mask split into %d blobs", n)}
		}
	}
	c.Regions = regions

	hash, err := FrameHash(img)
	if err != nil {
		return &Defect{ID: c.ID, Path: c.Path, Reason: err.Error()}
	}
	c.Hash = hash

	c.Score, c.Breakdown = FocusScore(img, regions, c.Category, ccfg)
	if c.Score == NoSubjectScore {
		c.mark(StatusRejectedNoSubject, "no subject region detected")
		return nil
	}
	if ccfg.MinSubjectSharpness > 0 && c.Breakdown.RawSubjectSharpness < ccfg.MinSubjectSharpness {
		return &Defect{ID: c.ID, Path: c.Path,
			Reason: fmt.Sprintf("subject sharpness %.1f below floor %.1f", c.Breakdown.RawSubjectSharpness, ccfg.MinSubjectSharpness)}
	}
	return nil
}

// CopySelection writes ranked copies of a category's selection into
// destDir/<category>: 001_<name> for the best frame and so on. A caption
// sidecar next to a frame travels with it under the same rank prefix. The
// category directory is replaced wholesale, never appended to.
func CopySelection(res CategoryResult, destDir string) error {
	dir := filepath.Join(destDir, res.Category)
	// Rank prefixes restart at 001 every run, so copies from an earlier
	// selection would collide with and pollute the fresh numbering.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear selection dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create selection dir: %w", err)
	}
	for i, c := range res.Selected {
		rank := fmt.Sprintf("%03d_", i+1)
		if err := copyFile(c.Path, filepath.Join(dir, rank+filepath.Base(c.Path))); err != nil {
			return err
		}
		caption := captionPath(c.Path)
		if _, err := os.Stat(caption); err == nil {
			if err := copyFile(caption, filepath.Join(dir, rank+filepath.Base(caption))); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}
