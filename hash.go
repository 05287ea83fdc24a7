package framecull

import (
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
)

// hashBits is the width of the perceptual hash, and therefore the largest
// possible Hamming distance between two frames.
const hashBits = 64

// FrameHash computes the DCT perceptual hash of a frame. The hash survives
// resizing and re-encoding, so visually near-identical frames land within a
// small Hamming distance of each other.
func FrameHash(img image.Image) (*goimagehash.ImageHash, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("perceptual hash: %w", err)
	}
	return h, nil
}

// HashHex renders a hash as 16 hex digits for reports and storage.
func HashHex(h *goimagehash.ImageHash) string {
	if h == nil {
		return ""
	}
	return fmt.Sprintf("%016x", h.GetHash())
}

// ParseHashHex is the inverse of HashHex.
func ParseHashHex(s string) (*goimagehash.ImageHash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return goimagehash.NewImageHash(v, goimagehash.PHash), nil
}
