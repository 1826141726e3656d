package analytics

import (
	"time"

	"tg_analytics/internal/model"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func intp(v int) *int { return &v }

func textMsg(id int, age time.Duration, views int, text string) model.RawMessage {
	return model.RawMessage{ID: id, Date: ago(age), Text: text, Views: intp(views)}
}

func photo() *model.Media { return &model.Media{Kind: model.MediaPhoto} }

func document(mime string) *model.Media {
	return &model.Media{Kind: model.MediaDocument, MIMEType: mime}
}

func reactions(counts ...int) *model.Reactions {
	r := &model.Reactions{}
	for _, c := range counts {
		r.Results = append(r.Results, model.ReactionCount{Reaction: "👍", Count: c})
	}
	return r
}
