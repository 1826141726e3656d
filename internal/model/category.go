package model

import (
	"fmt"
	"strings"
)

// Base is the media family of a post.
type Base uint8

// Supported bases.
const (
	BaseOther Base = iota
	BaseText
	BasePhoto
	BaseVideo
	BaseAudio
	BaseDocument
	BaseMedia
	BaseMixedMedia
)

var baseTags = [...]string{
	BaseOther:      "other",
	BaseText:       "text",
	BasePhoto:      "photo",
	BaseVideo:      "video",
	BaseAudio:      "audio",
	BaseDocument:   "document",
	BaseMedia:      "media",
	BaseMixedMedia: "mixed_media",
}

var baseLabels = [...]string{
	BaseOther:      "Other",
	BaseText:       "Text",
	BasePhoto:      "Photo",
	BaseVideo:      "Video",
	BaseAudio:      "Audio",
	BaseDocument:   "Document",
	BaseMedia:      "Media",
	BaseMixedMedia: "Mixed media",
}

func (b Base) String() string {
	if int(b) < len(baseTags) {
		return baseTags[b]
	}
	return baseTags[BaseOther]
}

// Variant distinguishes single messages from albums.
type Variant uint8

// Supported variants. Only albums carry a non-single variant.
const (
	VariantSingle Variant = iota
	VariantWithText
	VariantAlbum
)

const (
	suffixWithText = "_with_text"
	suffixAlbum    = "_album"
)

// Category is the content category of a post.
type Category struct {
	Base    Base
	Variant Variant
}

// Commonly used categories.
var (
	CategoryOther    = Category{Base: BaseOther}
	CategoryText     = Category{Base: BaseText}
	CategoryPhoto    = Category{Base: BasePhoto}
	CategoryVideo    = Category{Base: BaseVideo}
	CategoryAudio    = Category{Base: BaseAudio}
	CategoryDocument = Category{Base: BaseDocument}
	CategoryMedia    = Category{Base: BaseMedia}
)

// String returns the wire tag, e.g. "photo_with_text".
func (c Category) String() string {
	switch c.Variant {
	case VariantWithText:
		return c.Base.String() + suffixWithText
	case VariantAlbum:
		return c.Base.String() + suffixAlbum
	default:
		return c.Base.String()
	}
}

// Label returns a human-readable name for reports.
func (c Category) Label() string {
	base := baseLabels[BaseOther]
	if int(c.Base) < len(baseLabels) {
		base = baseLabels[c.Base]
	}
	switch c.Variant {
	case VariantWithText:
		return base + " with text"
	case VariantAlbum:
		return base + " album"
	default:
		return base
	}
}

// ParseCategory parses a wire tag produced by String.
func ParseCategory(s string) (Category, error) {
	variant := VariantSingle
	base := s
	switch {
	case strings.HasSuffix(s, suffixWithText):
		variant = VariantWithText
		base = strings.TrimSuffix(s, suffixWithText)
	case strings.HasSuffix(s, suffixAlbum):
		variant = VariantAlbum
		base = strings.TrimSuffix(s, suffixAlbum)
	}
	for i, tag := range baseTags {
		if tag == base {
			return Category{Base: Base(i), Variant: variant}, nil
		}
	}
	return Category{}, fmt.Errorf("unknown content category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
