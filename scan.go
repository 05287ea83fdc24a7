package framecull

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Frame filenames follow the extractor convention <source>_frame_<index>.<ext>.
var frameNameRe = regexp.MustCompile(`^(.+)_frame_(\d+)\.(?i:jpe?g|png|webp)$`)

// Defect records a frame excluded before ranking. Defects are input-quality
// problems (unreadable files, bad segmentations, tainted metadata), distinct
// from the gauntlet's rejection statuses.
type Defect struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ParseFrameName splits a frame filename into source id and frame index.
func ParseFrameName(name string) (source string, index int, ok bool) {
	m := frameNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], idx, true
}

// ScanCategory lists one category directory and returns shell candidates for
// every file matching the frame naming convention, plus the highest frame
// index seen per source. Files outside the convention, sidecars included, are
// skipped silently.
func ScanCategory(dir, category string) ([]*Candidate, map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan category %s: %w", category, err)
	}
	var cands []*Candidate
	manifest := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		source, idx, ok := ParseFrameName(e.Name())
		if !ok {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		cands = append(cands, &Candidate{
			ID:               stem,
			Path:             filepath.Join(dir, e.Name()),
			SourceID:         source,
			FrameIndex:       idx,
			TimelinePosition: -1,
			Category:         category,
		})
		if idx > manifest[source] {
			manifest[source] = idx
		}
	}
	slog.Debug("framecull: scanned category",
		"category", category, "frames", len(cands), "sources", len(manifest))
	return cands, manifest, nil
}

// applyTimeline fills TimelinePosition from the cross-category manifest of
// highest frame indexes. Sources missing from the manifest keep an unknown
// position.
func applyTimeline(cands []*Candidate, manifest map[string]int) {
	for _, c := range cands {
		if top := manifest[c.SourceID]; top > 0 && c.FrameIndex <= top {
			c.TimelinePosition = float64(c.FrameIndex) / float64(top)
		}
	}
}

// readFrame loads and decodes one frame, returning the raw bytes for metadata
// probing alongside the decoded pixels.
func readFrame(path string) ([]byte, image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read frame: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode frame: %w", err)
	}
	return data, img, nil
}

func sidecarPath(framePath string) string {
	return strings.TrimSuffix(framePath, filepath.Ext(framePath)) + ".features.json"
}

func captionPath(framePath string) string {
	return strings.TrimSuffix(framePath, filepath.Ext(framePath)) + ".txt"
}

// loadRegions assembles the subject evidence for a decoded frame: mask from
// the frame's alpha channel, face box and keypoints from the feature sidecar
// when one exists.
func loadRegions(img image.Image, framePath string) (SubjectRegions, error) {
	var regions SubjectRegions
	regions.Mask = alphaMask(img)
	data, err := os.ReadFile(sidecarPath(framePath))
	if errors.Is(err, os.ErrNotExist) {
		return regions, nil
	}
	if err != nil {
		return SubjectRegions{}, fmt.Errorf("read feature sidecar: %w", err)
	}
	sc, err := parseFeatureSidecar(data)
	if err != nil {
		return SubjectRegions{}, err
	}
	regions.Face = sc.Face
	regions.Keypoints = sc.Keypoints
	return regions, nil
}
