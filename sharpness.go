package framecull

import (
	"image"
	"image/color"
	"image/draw"

	"gonum.org/v1/gonum/stat"
)

// regionFunc reports whether a frame pixel belongs to the region being
// measured. Coordinates are absolute frame coordinates.
type regionFunc func(x, y int) bool

// grayFrame converts a decoded frame to 8-bit grayscale. Alpha is ignored:
// a masked frame keeps its true pixel values under the transparent region,
// which the background sharpness measure depends on. Premultiplying would
// flatten everything under the mask to black.
func grayFrame(img image.Image) *image.Gray {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		return src
	case *image.NRGBA:
		g := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				i := src.PixOffset(x, y)
				r := int(src.Pix[i])
				gg := int(src.Pix[i+1])
				bb := int(src.Pix[i+2])
				g.SetGray(x, y, color.Gray{Y: uint8((299*r + 587*gg + 114*bb + 500) / 1000)})
			}
		}
		return g
	case *image.NYCbCrA:
		g := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.SetGray(x, y, color.Gray{Y: src.Y[src.YOffset(x, y)]})
			}
		}
		return g
	case *image.YCbCr:
		g := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.SetGray(x, y, color.Gray{Y: src.Y[src.YOffset(x, y)]})
			}
		}
		return g
	default:
		g := image.NewGray(b)
		draw.Draw(g, b, img, b.Min, draw.Src)
		return g
	}
}

// SharpnessMap holds the per-pixel edge response for one frame, computed once
// and then sampled per region. The response is the 4-neighbour Laplacian over
// the frame interior; border pixels carry no response.
type SharpnessMap struct {
	resp   []float64
	bounds image.Rectangle
}

// NewSharpnessMap computes the edge response for gray. Frames smaller than
// 3x3 produce an empty map.
func NewSharpnessMap(gray *image.Gray) *SharpnessMap {
	b := gray.Bounds()
	m := &SharpnessMap{bounds: b}
	iw, ih := b.Dx()-2, b.Dy()-2
	if iw <= 0 || ih <= 0 {
		return m
	}
	m.resp = make([]float64, iw*ih)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			c := int(gray.GrayAt(x, y).Y)
			v := 4*c -
				int(gray.GrayAt(x-1, y).Y) -
				int(gray.GrayAt(x+1, y).Y) -
				int(gray.GrayAt(x, y-1).Y) -
				int(gray.GrayAt(x, y+1).Y)
			m.resp[(y-b.Min.Y-1)*iw+(x-b.Min.X-1)] = float64(v)
		}
	}
	return m
}

// interior visits every interior pixel inside the region.
func (m *SharpnessMap) interior(in regionFunc, visit func(v float64)) {
	iw := m.bounds.Dx() - 2
	if iw <= 0 {
		return
	}
	for y := m.bounds.Min.Y + 1; y < m.bounds.Max.Y-1; y++ {
		for x := m.bounds.Min.X + 1; x < m.bounds.Max.X-1; x++ {
			if in == nil || in(x, y) {
				visit(m.resp[(y-m.bounds.Min.Y-1)*iw+(x-m.bounds.Min.X-1)])
			}
		}
	}
}

// Variance returns the variance of the edge response over the region, the
// standard focus measure: sharp regions have wildly varying response, smooth
// or blurred regions a flat one. Regions smaller than minArea pixels return
// the 0 sentinel.
func (m *SharpnessMap) Variance(in regionFunc, minArea int) float64 {
	var vals []float64
	m.interior(in, func(v float64) { vals = append(vals, v) })
	if len(vals) < minArea || len(vals) < 2 {
		return 0
	}
	return stat.PopVariance(vals, nil)
}

// regionMean returns the mean gray level over the region. The second return
// is false for regions smaller than minArea pixels.
func regionMean(gray *image.Gray, in regionFunc, minArea int) (float64, bool) {
	b := gray.Bounds()
	var vals []float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if in == nil || in(x, y) {
				vals = append(vals, float64(gray.GrayAt(x, y).Y))
			}
		}
	}
	if len(vals) < minArea || len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}
