package framecull

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestProvenanceContaminated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prov      *Provenance
		want      bool
		wantField string
	}{
		{
			name: "nil provenance",
			prov: nil,
			want: false,
		},
		{
			name: "empty provenance",
			prov: &Provenance{},
			want: false,
		},
		{
			name:      "shutterstock in copyright",
			prov:      &Provenance{Copyright: "Copyright Shutterstock Inc."},
			want:      true,
			wantField: "Copyright Shutterstock Inc.",
		},
		{
			name:      "getty in credit",
			prov:      &Provenance{Credit: "Getty Images"},
			want:      true,
			wantField: "Getty Images",
		},
		{
			name:      "istock in artist",
			prov:      &Provenance{Artist: "iStockPhoto.com/photographer"},
			want:      true,
			wantField: "iStockPhoto.com/photographer",
		},
		{
			name:      "alamy in source",
			prov:      &Provenance{Source: "Alamy Stock Photo"},
			want:      true,
			wantField: "Alamy Stock Photo",
		},
		{
			name:      "depositphotos in byline",
			prov:      &Provenance{Byline: "Depositphotos user"},
			want:      true,
			wantField: "Depositphotos user",
		},
		{
			name:      "adobe stock in rights",
			prov:      &Provenance{Rights: "Licensed via Adobe Stock"},
			want:      true,
			wantField: "Licensed via Adobe Stock",
		},
		{
			name:      "unsplash in creator",
			prov:      &Provenance{Creator: "unsplash.com contributor"},
			want:      true,
			wantField: "unsplash.com contributor",
		},
		{
			name:      "case insensitive match",
			prov:      &Provenance{Copyright: "SHUTTERSTOCK, INC."},
			want:      true,
			wantField: "SHUTTERSTOCK, INC.",
		},
		{
			name:      "pexels in source",
			prov:      &Provenance{Source: "Pexels"},
			want:      true,
			wantField: "Pexels",
		},
		{
			name: "regular photographer returns false",
			prov: &Provenance{
				Copyright: "Copyright 2025 John Smith",
				Byline:    "John Smith",
				Artist:    "John Smith",
			},
			want: false,
		},
		{
			name: "extractor output with plain tool tag",
			prov: &Provenance{Creator: "frame-extractor 2.1"},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, field := tc.prov.Contaminated()
			if got != tc.want {
				t.Errorf("Contaminated() = %v, want %v", got, tc.want)
			}
			if field != tc.wantField {
				t.Errorf("Contaminated() field = %q, want %q", field, tc.wantField)
			}
		})
	}
}

func TestExtractProvenance_NilAndEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "nil data returns nil",
			data: nil,
		},
		{
			name: "empty data returns nil",
			data: []byte{},
		},
		{
			name: "garbage data returns nil",
			data: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractProvenance(tc.data)
			if got != nil {
				t.Errorf("ExtractProvenance(%v) = %+v, want nil", tc.data, got)
			}
		})
	}
}

func TestExtractProvenance_CleanFrame(t *testing.T) {
	t.Parallel()

	// Extractor output carries no authorship metadata at all.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if got := ExtractProvenance(buf.Bytes()); got != nil {
		t.Errorf("ExtractProvenance(clean png) = %+v, want nil", got)
	}
}

func TestTagString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"plain string", "Getty Images", "Getty Images"},
		{"string list", []string{"first", "second"}, "first"},
		{"empty string list", []string{}, ""},
		{"any list", []any{"first", 2}, "first"},
		{"any list with non-string head", []any{42}, ""},
		{"unsupported type", 42, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tagString(tc.value); got != tc.want {
				t.Errorf("tagString(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
