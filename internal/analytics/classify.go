package analytics

import (
	"strings"

	"tg_analytics/internal/model"
)

// albumPrecedence picks the dominant base of a single-kind album.
var albumPrecedence = []model.Base{
	model.BaseVideo,
	model.BasePhoto,
	model.BaseAudio,
	model.BaseDocument,
	model.BaseMedia,
}

// mediaBase maps an attachment to its base category.
// ok is false when the message has no media.
func mediaBase(m model.RawMessage) (model.Base, bool) {
	if m.Media == nil {
		return model.BaseOther, false
	}
	switch m.Media.Kind {
	case model.MediaPhoto:
		return model.BasePhoto, true
	case model.MediaDocument:
		mime := strings.ToLower(m.Media.MIMEType)
		switch {
		case strings.HasPrefix(mime, "video/"):
			return model.BaseVideo, true
		case strings.HasPrefix(mime, "audio/"):
			return model.BaseAudio, true
		default:
			return model.BaseDocument, true
		}
	default:
		return model.BaseMedia, true
	}
}

func hasText(m model.RawMessage) bool {
	return strings.TrimSpace(m.Text) != ""
}

// Classify returns the category of a single, ungrouped message.
func Classify(m model.RawMessage) model.Category {
	if base, ok := mediaBase(m); ok {
		return model.Category{Base: base}
	}
	if hasText(m) {
		return model.CategoryText
	}
	return model.CategoryOther
}

// ClassifyGroup returns the category of an album.
// Albums always carry a variant: "_with_text" when any member has text, "_album" otherwise.
func ClassifyGroup(msgs []model.RawMessage) model.Category {
	seen := make(map[model.Base]bool)
	text := false
	media := 0

	for _, m := range msgs {
		if hasText(m) {
			text = true
		}
		if base, ok := mediaBase(m); ok {
			media++
			seen[base] = true
		}
	}

	if media == 0 {
		if text {
			return model.CategoryText
		}
		return model.CategoryOther
	}

	base := model.BaseMixedMedia
	if len(seen) == 1 {
		for _, b := range albumPrecedence {
			if seen[b] {
				base = b
				break
			}
		}
	}

	if text {
		return model.Category{Base: base, Variant: model.VariantWithText}
	}
	return model.Category{Base: base, Variant: model.VariantAlbum}
}
