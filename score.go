package framecull

import (
	"image"
	"math"
)

const (
	// NoSubjectScore sorts below every valid composite score so subjectless
	// frames can never outrank a scored one.
	NoSubjectScore = -1.0

	// backgroundVarianceFloor stands in for a flat background so the
	// dominance ratio stays finite.
	backgroundVarianceFloor = 1e-6

	// visibilityThreshold is the detector confidence above which a keypoint
	// counts as visible.
	visibilityThreshold = 0.5

	// idealBrightness is the mid-gray exposure target for the subject.
	idealBrightness = 128.0

	// anklePenalty halves the pose term when ankles show up in a crop that
	// should frame the face or upper body: visible feet mean the subject is
	// far too small in the frame.
	anklePenalty = 0.5
)

// Keypoint profiles per category, in detector naming. A category outside the
// stock three falls back to the full-body profile.
var (
	faceKeypoints = []string{
		"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	}
	upperBodyKeypoints = append(faceKeypoints[:len(faceKeypoints):len(faceKeypoints)],
		"left_shoulder", "right_shoulder",
		"left_hip", "right_hip",
	)
	fullBodyKeypoints = []string{
		"nose", "left_eye", "right_eye", "left_ear", "right_ear",
		"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
		"left_wrist", "right_wrist", "left_hip", "right_hip",
		"left_knee", "right_knee", "left_ankle", "right_ankle",
	}
)

func keypointProfile(category string) []string {
	switch category {
	case CategoryFace:
		return faceKeypoints
	case CategoryUpperBody:
		return upperBodyKeypoints
	default:
		return fullBodyKeypoints
	}
}

// ScoreBreakdown records every term behind a candidate's composite score, for
// the audit report.
type ScoreBreakdown struct {
	// RawSubjectSharpness and RawBackgroundSharpness are the unbounded
	// Laplacian variances of the two regions. 0 marks a degenerate region.
	RawSubjectSharpness    float64 `json:"raw_subject_sharpness"`
	RawBackgroundSharpness float64 `json:"raw_background_sharpness"`

	// Dominance is the clamped subject/background sharpness ratio.
	Dominance float64 `json:"dominance"`

	// The weighted terms, each on [0, 1].
	SubjectTerm    float64 `json:"subject_term"`
	DominanceTerm  float64 `json:"dominance_term"`
	PoseTerm       float64 `json:"pose_term"`
	BrightnessTerm float64 `json:"brightness_term"`
}

// FocusScore computes the composite quality score for one frame. The score is
// a pure function of the pixel data, the subject regions and the category
// policy, so equal inputs always produce equal scores.
//
// The two sharpness terms carry the core judgement: a frame whose subject is
// sharp scores well, and a frame whose subject is sharper than its background
// scores better than one where focus sits on the scenery. Frames without any
// subject evidence return NoSubjectScore.
func FocusScore(img image.Image, regions SubjectRegions, category string, cfg CategoryConfig) (float64, ScoreBreakdown) {
	if regions.Kind() == RegionNone {
		return NoSubjectScore, ScoreBreakdown{}
	}

	gray := grayFrame(img)
	edges := NewSharpnessMap(gray)
	subject, background := subjectRegion(regions, gray.Bounds()), backgroundRegion(regions, gray.Bounds())

	var bd ScoreBreakdown
	bd.RawSubjectSharpness = edges.Variance(subject, cfg.MinRegionArea)
	bd.RawBackgroundSharpness = edges.Variance(background, cfg.MinRegionArea)

	ratio := bd.RawSubjectSharpness / math.Max(bd.RawBackgroundSharpness, backgroundVarianceFloor)
	bd.Dominance = math.Min(ratio, cfg.DominanceClamp)

	bd.SubjectTerm = bd.RawSubjectSharpness / (bd.RawSubjectSharpness + cfg.SharpnessSaturation)
	bd.DominanceTerm = math.Log1p(bd.Dominance) / math.Log1p(cfg.DominanceClamp)
	bd.PoseTerm = poseScore(regions.Keypoints, category)
	if mean, ok := regionMean(gray, subject, cfg.MinRegionArea); ok {
		bd.BrightnessTerm = brightnessScore(mean)
	}

	w := cfg.Weights
	score := w.Subject*bd.SubjectTerm +
		w.Dominance*bd.DominanceTerm +
		w.Pose*bd.PoseTerm +
		w.Brightness*bd.BrightnessTerm
	return score, bd
}

// subjectRegion picks the pixels the subject terms measure: the face box when
// present (tightened to mask pixels if a mask exists), otherwise the mask.
func subjectRegion(regions SubjectRegions, bounds image.Rectangle) regionFunc {
	mask := regions.Mask
	if regions.Face != nil {
		r := regions.Face.rect(bounds)
		if mask == nil {
			return func(x, y int) bool {
				return image.Pt(x, y).In(r)
			}
		}
		return func(x, y int) bool {
			return image.Pt(x, y).In(r) && mask.AlphaAt(x, y).A >= maskOpaque
		}
	}
	return func(x, y int) bool {
		return mask.AlphaAt(x, y).A >= maskOpaque
	}
}

// backgroundRegion is everything outside the subject's footprint. With a mask
// that is every non-subject pixel; with only a face box, everything outside
// the box.
func backgroundRegion(regions SubjectRegions, bounds image.Rectangle) regionFunc {
	if regions.Mask != nil {
		mask := regions.Mask
		return func(x, y int) bool {
			return mask.AlphaAt(x, y).A < maskOpaque
		}
	}
	r := regions.Face.rect(bounds)
	return func(x, y int) bool {
		return !image.Pt(x, y).In(r)
	}
}

// poseScore averages detector confidence over the category's keypoint profile,
// with absent keypoints counting as zero. Visible ankles in a face or
// upper-body crop halve the result.
func poseScore(kps []Keypoint, category string) float64 {
	profile := keypointProfile(category)
	if len(kps) == 0 {
		return 0
	}
	conf := make(map[string]float64, len(kps))
	for _, kp := range kps {
		if kp.Confidence > conf[kp.Name] {
			conf[kp.Name] = kp.Confidence
		}
	}
	sum := 0.0
	for _, name := range profile {
		sum += conf[name]
	}
	score := sum / float64(len(profile))

	if category == CategoryFace || category == CategoryUpperBody {
		if conf["left_ankle"] > visibilityThreshold || conf["right_ankle"] > visibilityThreshold {
			score *= anklePenalty
		}
	}
	return score
}

// brightnessScore rewards subjects exposed near mid-gray, falling off linearly
// toward crushed or blown exposure.
func brightnessScore(mean float64) float64 {
	return math.Max(0, 1-math.Abs(mean-idealBrightness)/idealBrightness)
}
