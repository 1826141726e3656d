package telegram

import (
	"strconv"
	"time"

	"github.com/gotd/td/tg"

	"tg_analytics/internal/model"
)

// convertMessage maps an MTProto message to the optional-field RawMessage.
// Absent counters stay nil.
func convertMessage(m *tg.Message) model.RawMessage {
	raw := model.RawMessage{
		ID:   m.ID,
		Text: m.Message,
	}
	if m.Date > 0 {
		d := time.Unix(int64(m.Date), 0).UTC()
		raw.Date = &d
	}
	if media, ok := m.GetMedia(); ok {
		raw.Media = convertMedia(media)
	}
	if gid, ok := m.GetGroupedID(); ok {
		raw.GroupID = gid
	}
	if v, ok := m.GetViews(); ok {
		raw.Views = &v
	}
	if f, ok := m.GetForwards(); ok {
		raw.Forwards = &f
	}
	if r, ok := m.GetReplies(); ok {
		raw.Replies = &model.Replies{Count: r.Replies}
	}
	if r, ok := m.GetReactions(); ok {
		rs := &model.Reactions{Results: make([]model.ReactionCount, 0, len(r.Results))}
		for _, rc := range r.Results {
			rs.Results = append(rs.Results, model.ReactionCount{
				Reaction: reactionName(rc.Reaction),
				Count:    rc.Count,
			})
		}
		raw.Reactions = rs
	}
	return raw
}

func convertMedia(media tg.MessageMediaClass) *model.Media {
	switch md := media.(type) {
	case *tg.MessageMediaEmpty:
		return nil
	case *tg.MessageMediaPhoto:
		return &model.Media{Kind: model.MediaPhoto}
	case *tg.MessageMediaDocument:
		out := &model.Media{Kind: model.MediaDocument}
		if dc, ok := md.GetDocument(); ok {
			if doc, ok := dc.(*tg.Document); ok {
				out.MIMEType = doc.MimeType
			}
		}
		return out
	default:
		return &model.Media{Kind: model.MediaOther}
	}
}

func reactionName(r tg.ReactionClass) string {
	switch v := r.(type) {
	case *tg.ReactionEmoji:
		return v.Emoticon
	case *tg.ReactionCustomEmoji:
		return "custom:" + strconv.FormatInt(v.DocumentID, 10)
	case *tg.ReactionPaid:
		return "paid"
	default:
		return "unknown"
	}
}
