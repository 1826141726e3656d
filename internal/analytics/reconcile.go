package analytics

import (
	"sort"
	"strings"

	"tg_analytics/internal/model"
)

const (
	previewLength      = 100
	previewMediaOnly   = "Media content"
	previewEmptyAlbum  = "Media content without description"
	previewAlbumPrefix = "Album: "
	previewEllipsis    = "..."
)

// Reconciled is the outcome of grouping a message snapshot into posts.
type Reconciled struct {
	Posts   []model.Post
	Groups  int
	Singles int
}

// Reconcile merges messages sharing a group id into one post each and turns
// every other message into its own post. Messages without a date are dropped.
// Albums come first in order of first appearance, then singles in input order.
func Reconcile(msgs []model.RawMessage) Reconciled {
	groups := make(map[int64][]model.RawMessage)
	var order []int64
	var singles []model.RawMessage

	for _, m := range msgs {
		if m.Date == nil {
			continue
		}
		if m.GroupID == 0 {
			singles = append(singles, m)
			continue
		}
		if _, ok := groups[m.GroupID]; !ok {
			order = append(order, m.GroupID)
		}
		groups[m.GroupID] = append(groups[m.GroupID], m)
	}

	posts := make([]model.Post, 0, len(order)+len(singles))
	for _, id := range order {
		posts = append(posts, mergeGroup(groups[id]))
	}
	for _, m := range singles {
		posts = append(posts, singlePost(m))
	}

	return Reconciled{Posts: posts, Groups: len(order), Singles: len(singles)}
}

func singlePost(m model.RawMessage) model.Post {
	preview := previewMediaOnly
	if hasText(m) {
		preview = truncate(m.Text)
	}
	return model.Post{
		ID:          m.ID,
		Date:        *m.Date,
		Views:       Views(m),
		Reactions:   Reactions(m),
		Forwards:    Forwards(m),
		Comments:    Comments(m),
		TextPreview: preview,
		Category:    Classify(m),
		GroupSize:   1,
	}
}

// mergeGroup builds the post of one album. Views and comments are taken from
// the lowest-id message; reactions and forwards are summed over the album.
func mergeGroup(msgs []model.RawMessage) model.Post {
	sorted := make([]model.RawMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	head := sorted[0]

	post := model.Post{
		ID:        head.ID,
		Date:      *head.Date,
		Views:     Views(head),
		Comments:  Comments(head),
		Category:  ClassifyGroup(sorted),
		IsGroup:   true,
		GroupSize: len(sorted),
	}
	for _, m := range sorted {
		post.Reactions += Reactions(m)
		post.Forwards += Forwards(m)
	}
	post.TextPreview = albumPreview(sorted)
	return post
}

func albumPreview(msgs []model.RawMessage) string {
	for _, m := range msgs {
		if hasText(m) {
			return truncate(m.Text)
		}
	}

	var kinds []string
	seen := make(map[model.Base]bool)
	for _, m := range msgs {
		base, ok := mediaBase(m)
		if !ok || seen[base] {
			continue
		}
		seen[base] = true
		kinds = append(kinds, base.String())
	}
	if len(kinds) == 0 {
		return previewEmptyAlbum
	}
	return previewAlbumPrefix + strings.Join(kinds, ", ")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + previewEllipsis
}
