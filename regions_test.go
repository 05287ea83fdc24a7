package framecull

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBoxRect(t *testing.T) {
	t.Parallel()

	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		name string
		box  Box
		want image.Rectangle
	}{
		{
			name: "full frame",
			box:  Box{X: 0, Y: 0, W: 1, H: 1},
			want: image.Rect(0, 0, 100, 50),
		},
		{
			name: "top left quarter",
			box:  Box{X: 0, Y: 0, W: 0.5, H: 0.5},
			want: image.Rect(0, 0, 50, 25),
		},
		{
			name: "overflow clamps to frame",
			box:  Box{X: 0.8, Y: 0.8, W: 0.5, H: 0.5},
			want: image.Rect(80, 40, 100, 50),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.box.rect(bounds); got != tc.want {
				t.Errorf("rect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSubjectRegionsKind(t *testing.T) {
	t.Parallel()

	mask := image.NewAlpha(image.Rect(0, 0, 4, 4))

	tests := []struct {
		name    string
		regions SubjectRegions
		want    RegionKind
	}{
		{name: "nothing", regions: SubjectRegions{}, want: RegionNone},
		{name: "face only", regions: SubjectRegions{Face: &Box{W: 1, H: 1}}, want: RegionFace},
		{name: "mask only", regions: SubjectRegions{Mask: mask}, want: RegionMask},
		{name: "face wins over mask", regions: SubjectRegions{Face: &Box{W: 1, H: 1}, Mask: mask}, want: RegionFace},
	}

	for _, tc := range tests {
		if got := tc.regions.Kind(); got != tc.want {
			t.Errorf("%s: Kind() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseFeatureSidecar(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"face": {"x": 0.25, "y": 0.1, "w": 0.5, "h": 0.4},
		"keypoints": [
			{"name": "nose", "x": 0.5, "y": 0.3, "confidence": 0.97},
			{"name": "left_eye", "x": 0.45, "y": 0.25, "confidence": 0.91}
		]
	}`)

	sc, err := parseFeatureSidecar(data)
	if err != nil {
		t.Fatalf("parseFeatureSidecar() error: %v", err)
	}

	want := featureSidecar{
		Face: &Box{X: 0.25, Y: 0.1, W: 0.5, H: 0.4},
		Keypoints: []Keypoint{
			{Name: "nose", X: 0.5, Y: 0.3, Confidence: 0.97},
			{Name: "left_eye", X: 0.45, Y: 0.25, Confidence: 0.91},
		},
	}
	if diff := cmp.Diff(want, sc); diff != "" {
		t.Errorf("sidecar mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseFeatureSidecar([]byte("{broken")); err == nil {
		t.Error("parseFeatureSidecar() accepted malformed JSON")
	}
}

func TestAlphaMask(t *testing.T) {
	t.Parallel()

	// Left half opaque subject, right half transparent.
	masked := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			a := uint8(0)
			if x < 4 {
				a = 255
			}
			i := y*masked.Stride + x*4
			masked.Pix[i+3] = a
		}
	}

	mask := alphaMask(masked)
	if mask == nil {
		t.Fatal("alphaMask() = nil for a masked frame")
	}
	if got := maskArea(mask); got != 32 {
		t.Errorf("maskArea() = %d, want 32", got)
	}

	// Fully opaque frames carry no mask.
	opaque := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 255
	}
	if alphaMask(opaque) != nil {
		t.Error("alphaMask() != nil for an opaque frame")
	}

	// A fully transparent frame has no subject either.
	empty := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if alphaMask(empty) != nil {
		t.Error("alphaMask() != nil for an empty frame")
	}
}

func TestMaskRegionCount(t *testing.T) {
	t.Parallel()

	setBlock := func(mask *image.Alpha, x0, y0, x1, y1 int) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				mask.Pix[mask.PixOffset(x, y)] = 255
			}
		}
	}

	one := image.NewAlpha(image.Rect(0, 0, 20, 20))
	setBlock(one, 2, 2, 10, 10)
	if got := maskRegionCount(one, 4); got != 1 {
		t.Errorf("single blob counted as %d regions, want 1", got)
	}

	two := image.NewAlpha(image.Rect(0, 0, 20, 20))
	setBlock(two, 0, 0, 5, 5)
	setBlock(two, 12, 12, 18, 18)
	if got := maskRegionCount(two, 4); got != 2 {
		t.Errorf("two blobs counted as %d regions, want 2", got)
	}

	// Specks below the area floor do not count.
	speckled := image.NewAlpha(image.Rect(0, 0, 20, 20))
	setBlock(speckled, 0, 0, 8, 8)
	setBlock(speckled, 15, 15, 16, 16)
	if got := maskRegionCount(speckled, 4); got != 1 {
		t.Errorf("blob plus speck counted as %d regions, want 1", got)
	}

	// Diagonal touch is not 4-connected.
	diagonal := image.NewAlpha(image.Rect(0, 0, 10, 10))
	setBlock(diagonal, 0, 0, 3, 3)
	setBlock(diagonal, 3, 3, 6, 6)
	if got := maskRegionCount(diagonal, 2); got != 2 {
		t.Errorf("diagonally touching blobs counted as %d regions, want 2", got)
	}
}
