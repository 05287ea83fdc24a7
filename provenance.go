package framecull

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// Provenance holds the authorship metadata embedded in a frame file. Frames
// produced by the extractor carry none of it; a file that does carry agency
// credits was smuggled into the pool from somewhere else.
type Provenance struct {
	Copyright string
	Artist    string
	Credit    string
	Source    string
	Byline    string
	Rights    string
	Creator   string
}

// agencyKeywords are case-insensitive substrings naming photo agencies and
// stock libraries. Any of them in a provenance field marks the frame as
// foreign to the pool.
var agencyKeywords = []string{
	"shutterstock",
	"getty images",
	"gettyimages",
	"istockphoto",
	"istock",
	"alamy",
	"depositphotos",
	"dreamstime",
	"123rf",
	"adobe stock",
	"adobestock",
	"stocksy",
	"pond5",
	"superstock",
	"agefotostock",
	"freepik",
	"unsplash",
	"pexels",
	"pixabay",
}

// provenanceTags maps metadata source to the tag names worth extracting.
var provenanceTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Copyright": true,
		"Artist":    true,
	},
	imagemeta.IPTC: {
		"CopyrightNotice": true,
		"Credit":          true,
		"Source":          true,
		"Byline":          true,
	},
	imagemeta.XMP: {
		"Rights":  true,
		"Creator": true,
	},
}

// ExtractProvenance parses EXIF/IPTC/XMP authorship fields from raw frame
// bytes. Returns nil when the data carries none, cannot be parsed, or is
// empty; extraction failures never block the pipeline.
func ExtractProvenance(data []byte) *Provenance {
	if len(data) == 0 {
		return nil
	}

	p := &Provenance{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := provenanceTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := tagString(ti.Value)
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "Copyright", "CopyrightNotice":
				p.Copyright = s
			case "Artist":
				p.Artist = s
			case "Credit":
				p.Credit = s
			case "Source":
				p.Source = s
			case "Byline":
				p.Byline = s
			case "Rights":
				p.Rights = s
			case "Creator":
				p.Creator = s
			default:
				return nil
			}
			found = true
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return p
}

// Contaminated reports whether the provenance names a known agency, with the
// matching field value as detail.
func (p *Provenance) Contaminated() (bool, string) {
	if p == nil {
		return false, ""
	}
	for _, f := range []string{
		p.Copyright, p.Artist, p.Credit, p.Source, p.Byline, p.Rights, p.Creator,
	} {
		if f == "" {
			continue
		}
		lower := strings.ToLower(f)
		for _, kw := range agencyKeywords {
			if strings.Contains(lower, kw) {
				return true, f
			}
		}
	}
	return false, ""
}

// tagString extracts a string from a raw tag value. XMP list values collapse
// to their first element.
func tagString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
