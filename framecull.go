package framecull

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Category names used by the stock extraction pipeline. The set is open:
// any directory name under the input root can be configured as a category.
const (
	CategoryFace      = "face"
	CategoryUpperBody = "upper_body"
	CategoryFullBody  = "full_body"
)

const (
	// DefaultTargetCount is the per-category selection size.
	DefaultTargetCount = 60

	// DefaultGlobalHashThreshold is the strict Hamming distance below which two
	// frames are near-identical regardless of source video.
	DefaultGlobalHashThreshold = 3

	// DefaultIntraHashThreshold is the looser Hamming distance below which two
	// frames from the same source video are too similar to keep both.
	DefaultIntraHashThreshold = 10

	// DefaultMinRegionArea is the minimum pixel count for a region to produce a
	// sharpness or brightness measure instead of the zero sentinel.
	DefaultMinRegionArea = 64

	// DefaultSharpnessSaturation is the Laplacian-variance scale constant K in
	// raw/(raw+K). Raw variance below ~50 is unusably blurry footage, so K=500
	// puts typical sharp subjects in the upper half of the term's range.
	DefaultSharpnessSaturation = 500.0

	// DefaultDominanceClamp caps the subject/background sharpness ratio so a
	// near-zero background cannot reward a frame without bound.
	DefaultDominanceClamp = 100.0

	// DefaultMaxMaskRegions is the most separate large blobs a subject mask may
	// split into before the frame is discarded as a bad segmentation.
	DefaultMaxMaskRegions = 3

	// DefaultTemporalBuckets splits each source timeline into start/middle/end.
	DefaultTemporalBuckets = 3

	// DefaultBucketCap limits selections per source per timeline bucket.
	DefaultBucketCap = 2

	// DefaultSourceCap is the flat per-source ceiling for quota categories.
	DefaultSourceCap = 6
)

// ScoreWeights control the relative contribution of each quality term to the
// composite score. All terms live on [0, 1], so the weights compare directly.
type ScoreWeights struct {
	Subject    float64 `yaml:"subject" json:"subject"`
	Dominance  float64 `yaml:"dominance" json:"dominance"`
	Pose       float64 `yaml:"pose" json:"pose"`
	Brightness float64 `yaml:"brightness" json:"brightness"`
}

func (w ScoreWeights) sum() float64 {
	return w.Subject + w.Dominance + w.Pose + w.Brightness
}

// defaultWeights returns the stock weights for a category. Face candidates
// weight facial sharpness more heavily; body candidates lean on the
// subject-vs-background dominance instead.
func defaultWeights(category string) ScoreWeights {
	if category == CategoryFace {
		return ScoreWeights{Subject: 0.45, Dominance: 0.25, Pose: 0.20, Brightness: 0.10}
	}
	return ScoreWeights{Subject: 0.35, Dominance: 0.35, Pose: 0.20, Brightness: 0.10}
}

// TemporalQuota configures the third gauntlet stage. Each source video's
// timeline is split into Buckets equal buckets; a source may contribute at most
// BucketCap selections per bucket and at most SourceCap selections in total
// (0 = no flat cap).
type TemporalQuota struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	Buckets   int  `yaml:"buckets" json:"buckets"`
	BucketCap int  `yaml:"bucket_cap" json:"bucket_cap"`
	SourceCap int  `yaml:"source_cap" json:"source_cap"`
}

// CategoryConfig is the policy surface for one category's pass: how many
// frames to keep, how aggressively to deduplicate, and how to score.
type CategoryConfig struct {
	// TargetCount is N, the selection size ceiling.
	TargetCount int `yaml:"target_count" json:"target_count"`

	// GlobalHashThreshold (t_global) and IntraHashThreshold (t_intra) are the
	// Hamming distance cutoffs for gauntlet stages 1 and 2. Stage 2 only
	// compares frames sharing a source, so t_intra must be >= t_global.
	GlobalHashThreshold int `yaml:"global_hash_threshold" json:"global_hash_threshold"`
	IntraHashThreshold  int `yaml:"intra_hash_threshold" json:"intra_hash_threshold"`

	Temporal TemporalQuota `yaml:"temporal" json:"temporal"`

	Weights ScoreWeights `yaml:"weights" json:"weights"`

	// MinRegionArea is the degenerate-region floor in pixels.
	MinRegionArea int `yaml:"min_region_area" json:"min_region_area"`

	// MinFrameWidth rejects frames narrower than this before scoring.
	// 0 disables the gate.
	MinFrameWidth int `yaml:"min_frame_width" json:"min_frame_width"`

	// MinSubjectSharpness discards frames whose raw subject sharpness falls
	// below this floor before they reach the gauntlet. 0 disables the gate.
	MinSubjectSharpness float64 `yaml:"min_subject_sharpness" json:"min_subject_sharpness"`

	// SharpnessSaturation is K in the bounded subject term raw/(raw+K).
	SharpnessSaturation float64 `yaml:"sharpness_saturation" json:"sharpness_saturation"`

	// DominanceClamp caps the subject/background sharpness ratio.
	DominanceClamp float64 `yaml:"dominance_clamp" json:"dominance_clamp"`

	// MaxMaskRegions is the most separate large blobs a subject mask may
	// contain before the frame is discarded.
	MaxMaskRegions int `yaml:"max_mask_regions" json:"max_mask_regions"`
}

// defaults fills zero-value fields with the stock policy for the category.
func (c *CategoryConfig) defaults(category string) {
	if c.TargetCount == 0 {
		c.TargetCount = DefaultTargetCount
	}
	if c.GlobalHashThreshold == 0 {
		c.GlobalHashThreshold = DefaultGlobalHashThreshold
	}
	if c.IntraHashThreshold == 0 {
		c.IntraHashThreshold = DefaultIntraHashThreshold
	}
	if c.Temporal.Enabled {
		if c.Temporal.Buckets == 0 {
			c.Temporal.Buckets = DefaultTemporalBuckets
		}
		if c.Temporal.BucketCap == 0 {
			c.Temporal.BucketCap = DefaultBucketCap
		}
	}
	if c.Weights == (ScoreWeights{}) {
		c.Weights = defaultWeights(category)
	}
	if c.MinRegionArea == 0 {
		c.MinRegionArea = DefaultMinRegionArea
	}
	if c.SharpnessSaturation == 0 {
		c.SharpnessSaturation = DefaultSharpnessSaturation
	}
	if c.DominanceClamp == 0 {
		c.DominanceClamp = DefaultDominanceClamp
	}
	if c.MaxMaskRegions == 0 {
		c.MaxMaskRegions = DefaultMaxMaskRegions
	}
}

// Validate reports the first policy defect. A failing config aborts its
// category before any scoring work; other categories are unaffected.
func (c CategoryConfig) Validate() error {
	if c.TargetCount <= 0 {
		return fmt.Errorf("target_count must be positive, got %d", c.TargetCount)
	}
	if c.GlobalHashThreshold < 0 || c.GlobalHashThreshold > hashBits {
		return fmt.Errorf("global_hash_threshold must be in [0, %d], got %d", hashBits, c.GlobalHashThreshold)
	}
	if c.IntraHashThreshold < c.GlobalHashThreshold {
		return fmt.Errorf("intra_hash_threshold (%d) must be >= global_hash_threshold (%d)",
			c.IntraHashThreshold, c.GlobalHashThreshold)
	}
	if c.IntraHashThreshold > hashBits {
		return fmt.Errorf("intra_hash_threshold must be in [0, %d], got %d", hashBits, c.IntraHashThreshold)
	}
	if c.Temporal.Enabled {
		if c.Temporal.Buckets < 1 {
			return fmt.Errorf("temporal.buckets must be >= 1, got %d", c.Temporal.Buckets)
		}
		if c.Temporal.BucketCap < 1 {
			return fmt.Errorf("temporal.bucket_cap must be >= 1, got %d", c.Temporal.BucketCap)
		}
		if c.Temporal.SourceCap < 0 {
			return fmt.Errorf("temporal.source_cap must be >= 0, got %d", c.Temporal.SourceCap)
		}
	}
	if c.Weights.Subject < 0 || c.Weights.Dominance < 0 || c.Weights.Pose < 0 || c.Weights.Brightness < 0 {
		return fmt.Errorf("score weights must be non-negative, got %+v", c.Weights)
	}
	if c.Weights.sum() <= 0 {
		return fmt.Errorf("score weights must sum to a positive value, got %+v", c.Weights)
	}
	if c.MinRegionArea < 2 {
		return fmt.Errorf("min_region_area must be >= 2, got %d", c.MinRegionArea)
	}
	if c.MinSubjectSharpness < 0 {
		return fmt.Errorf("min_subject_sharpness must be >= 0, got %g", c.MinSubjectSharpness)
	}
	if c.SharpnessSaturation <= 0 {
		return fmt.Errorf("sharpness_saturation must be positive, got %g", c.SharpnessSaturation)
	}
	if c.DominanceClamp < 1 {
		return fmt.Errorf("dominance_clamp must be >= 1, got %g", c.DominanceClamp)
	}
	if c.MaxMaskRegions < 1 {
		return fmt.Errorf("max_mask_regions must be >= 1, got %d", c.MaxMaskRegions)
	}
	return nil
}

// CategorySet maps category names to their policies.
type CategorySet map[string]CategoryConfig

// UnmarshalYAML decodes each category entry over the entry already in the set,
// field by field. A plain map decode would replace a mentioned category
// wholesale, silently dropping the stock fields the file leaves out.
func (s *CategorySet) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if *s == nil {
		*s = make(CategorySet, len(raw))
	}
	for name, n := range raw {
		ccfg := (*s)[name]
		if err := n.Decode(&ccfg); err != nil {
			return fmt.Errorf("category %s: %w", name, err)
		}
		(*s)[name] = ccfg
	}
	return nil
}

// Config holds the whole run policy.
type Config struct {
	// InputDir contains one subdirectory per category of candidate frames.
	InputDir string `yaml:"input_dir" json:"input_dir"`

	// OutputDir receives ranked copies of the selection, one subdirectory per
	// category. Empty disables the copy step.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// ReportPath is where the JSON audit report is written. Empty disables it.
	ReportPath string `yaml:"report_path" json:"report_path"`

	// Workers bounds the scoring pool. Defaults to the CPU count.
	Workers int `yaml:"workers" json:"workers"`

	Categories CategorySet `yaml:"categories" json:"categories"`
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Categories == nil {
		c.Categories = DefaultConfig().Categories
	}
}

// DefaultConfig returns the stock three-category policy: faces tolerate tight
// visual similarity and skip the temporal quota; body categories enforce it.
func DefaultConfig() Config {
	quota := TemporalQuota{
		Enabled:   true,
		Buckets:   DefaultTemporalBuckets,
		BucketCap: DefaultBucketCap,
		SourceCap: DefaultSourceCap,
	}
	return Config{
		Categories: CategorySet{
			CategoryFace:      {},
			CategoryUpperBody: {Temporal: quota},
			CategoryFullBody:  {Temporal: quota},
		},
	}
}

// LoadConfig reads a YAML policy file over the stock defaults, so partial
// files are safe down to single category fields: a file that sets only
// upper_body's target_count keeps that category's stock temporal quota. An
// empty path returns DefaultConfig unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
