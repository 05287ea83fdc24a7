package framecull

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
)

// RegionKind identifies which subject evidence a candidate carries.
type RegionKind int

const (
	// RegionNone means no face box and no usable mask: the frame has no
	// subject and can never be selected.
	RegionNone RegionKind = iota

	// RegionFace means a detector face box is present. A mask may also be
	// present and tightens the face region to subject pixels.
	RegionFace

	// RegionMask means the frame carries a subject mask but no face box.
	RegionMask
)

// Box is a normalized bounding box with coordinates in [0, 1] relative to the
// frame, as emitted by the detector stage.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// rect converts the normalized box to a pixel rectangle clamped to bounds.
func (b Box) rect(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(b.X*w),
		bounds.Min.Y+int(b.Y*h),
		bounds.Min.X+int((b.X+b.W)*w),
		bounds.Min.Y+int((b.Y+b.H)*h),
	)
	return r.Intersect(bounds)
}

// Keypoint is one named detector landmark with its confidence.
type Keypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// SubjectRegions holds the precomputed subject evidence for one frame: the
// detector's face box and keypoints from the feature sidecar, and the subject
// mask recovered from the frame's alpha channel.
type SubjectRegions struct {
	Face      *Box
	Mask      *image.Alpha
	Keypoints []Keypoint
}

// Kind classifies the available evidence.
func (r SubjectRegions) Kind() RegionKind {
	switch {
	case r.Face != nil:
		return RegionFace
	case r.Mask != nil:
		return RegionMask
	default:
		return RegionNone
	}
}

// featureSidecar mirrors the detector JSON written next to each frame.
type featureSidecar struct {
	Face      *Box       `json:"face,omitempty"`
	Keypoints []Keypoint `json:"keypoints,omitempty"`
}

func parseFeatureSidecar(data []byte) (featureSidecar, error) {
	var sc featureSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return featureSidecar{}, fmt.Errorf("parse feature sidecar: %w", err)
	}
	return sc, nil
}

// maskOpaque is the alpha cutoff between background and subject pixels.
const maskOpaque = 128

// maskBlobFraction is the share of the frame a mask blob must cover to count
// in the segmentation quality check; smaller specks are noise.
const maskBlobFraction = 0.005

// alphaMask recovers the subject mask from a frame's alpha channel. Pixels at
// or above half opacity count as subject. A frame with no transparent pixels
// carries no mask at all and nil is returned; likewise when the mask would be
// empty.
func alphaMask(img image.Image) *image.Alpha {
	b := img.Bounds()
	mask := image.NewAlpha(b)
	subject, background := 0, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a>>8 >= maskOpaque {
				mask.SetAlpha(x, y, color.Alpha{A: 0xFF})
				subject++
			} else {
				background++
			}
		}
	}
	if background == 0 || subject == 0 {
		return nil
	}
	return mask
}

// maskArea counts subject pixels.
func maskArea(mask *image.Alpha) int {
	n := 0
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A >= maskOpaque {
				n++
			}
		}
	}
	return n
}

// maskRegionCount counts the separate 4-connected subject blobs covering at
// least minArea pixels each. A clean segmentation of one person produces a
// single large blob; furniture and limbs picked up by a confused segmenter
// show up as extra blobs.
func maskRegionCount(mask *image.Alpha, minArea int) int {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	at := func(x, y int) bool {
		return mask.AlphaAt(b.Min.X+x, b.Min.Y+y).A >= maskOpaque
	}

	count := 0
	var queue []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if visited[idx] || !at(x, y) {
				continue
			}
			// Flood fill one blob.
			area := 0
			queue = append(queue[:0], idx)
			visited[idx] = true
			for len(queue) > 0 {
				cur := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				area++
				cx, cy := cur%w, cur/w
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					nidx := ny*w + nx
					if !visited[nidx] && at(nx, ny) {
						visited[nidx] = true
						queue = append(queue, nidx)
					}
				}
			}
			if area >= minArea {
				count++
			}
		}
	}
	return count
}
