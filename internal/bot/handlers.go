package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_analytics/internal/model"
	"tg_analytics/internal/pdf"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Telegram Channel Analytics!

Get engagement reports for any public channel.

Quick start:
1. /analyze <channel> — report for the last 24 hours
2. /ai <channel> — AI commentary on the report
3. /track <channel> — receive the report regularly

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Reports:
/analyze <channel> [hours] — engagement report (default 24 h)
/ai <channel> [hours] — AI analysis of the report
/pdf <channel> [hours] — report as a PDF document

Tracking:
/track <channel> [hours] — send the report daily
/list — show tracked channels
/untrack <id> — stop tracking
/interval <id> <min> — set report interval (10-10080)
/pause <id> — pause reports
/resume <id> — resume reports

A channel is a username, @username, t.me link or numeric id.`)
}

// analyze runs an analysis and reports failures to the chat itself.
func (b *Bot) analyze(ctx context.Context, chatID int64, args string, usage string) (*model.Report, ChannelArgs, bool) {
	parsed, err := ParseChannelArgs(args)
	if err != nil {
		b.reply(chatID, usage)
		return nil, parsed, false
	}

	rep, err := b.svc.Analyze(ctx, "bot", parsed.Channel, parsed.HoursBack)
	var noData *model.NoDataError
	switch {
	case errors.As(err, &noData):
		b.reply(chatID, FormatNoData(noData, b.svc.Location()))
		return nil, parsed, false
	case err != nil:
		b.reply(chatID, FormatError(err))
		return nil, parsed, false
	}
	return rep, parsed, true
}

func (b *Bot) handleAnalyze(ctx context.Context, chatID int64, args string) {
	rep, parsed, ok := b.analyze(ctx, chatID, args, "Usage: /analyze <channel> [hours]")
	if !ok {
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatReport(rep))
	msg.DisableWebPagePreview = true
	if kb, ok := actionKeyboard(
		tgbotapi.NewInlineKeyboardButtonData("AI analysis", cmdAI+":"+parsed.String()),
		tgbotapi.NewInlineKeyboardButtonData("PDF", cmdPDF+":"+parsed.String()),
	); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send report", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleAI(ctx context.Context, chatID int64, args string) {
	rep, _, ok := b.analyze(ctx, chatID, args, "Usage: /ai <channel> [hours]")
	if !ok {
		return
	}

	text, cached, err := b.svc.Narrative(ctx, rep)
	if err != nil {
		b.reply(chatID, FormatError(err))
		return
	}
	if cached {
		text += "\n\n(cached within the last hour)"
	}
	b.reply(chatID, text)
}

func (b *Bot) handlePDF(ctx context.Context, chatID int64, args string) {
	rep, _, ok := b.analyze(ctx, chatID, args, "Usage: /pdf <channel> [hours]")
	if !ok {
		return
	}

	// The narrative is optional in the document.
	text, _, err := b.svc.Narrative(ctx, rep)
	if err != nil {
		b.log.Debug("pdf without narrative", "channel", rep.ChannelInfo.Username, "error", err)
		text = ""
	}

	data, err := b.svc.PDF(ctx, rep, text)
	if err != nil {
		b.reply(chatID, FormatError(err))
		return
	}
	if err := b.SendDocument(chatID, pdf.Filename(rep), data); err != nil {
		b.log.Error("send pdf", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to send the PDF.")
	}
}

func (b *Bot) handleTrack(ctx context.Context, chatID int64, args string) {
	parsed, err := ParseChannelArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /track <channel> [hours]")
		return
	}

	tc := &model.TrackedChannel{
		ChatID:          chatID,
		Channel:         parsed.Channel,
		HoursBack:       parsed.HoursBack,
		IntervalMinutes: defaultIntervalMinutes,
		IsActive:        true,
	}
	if err := b.store.CreateTracked(ctx, tc); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Tracking #%d %s (last %d h, every %s).\nUse /interval %d <min> to change how often reports arrive.",
		tc.ID, tc.Channel, tc.HoursBack, formatInterval(tc.IntervalMinutes), tc.ID))
	if kb, ok := actionKeyboard(
		tgbotapi.NewInlineKeyboardButtonData("Report now", cmdAnalyze+":"+parsed.String()),
		tgbotapi.NewInlineKeyboardButtonData("Stop tracking", fmt.Sprintf("untrack_confirm:%d", tc.ID)),
	); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send track confirmation", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	list, err := b.store.ListTracked(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatTrackedList(list, b.svc.Location()))
}

// owned loads a tracked channel and checks it belongs to the chat.
func (b *Bot) owned(ctx context.Context, chatID, id int64) (*model.TrackedChannel, bool) {
	tc, err := b.store.GetTracked(ctx, id)
	if err != nil || tc.ChatID != chatID {
		b.reply(chatID, fmt.Sprintf("Tracked channel #%d not found.", id))
		return nil, false
	}
	return tc, true
}

func (b *Bot) handleUntrack(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /untrack <id>")
		return
	}

	tc, ok := b.owned(ctx, chatID, id)
	if !ok {
		return
	}

	if err := b.store.DeleteTracked(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Stopped tracking #%d %s.", id, tc.Channel))
}

func (b *Bot) handleInterval(ctx context.Context, chatID int64, args string) {
	id, mins, err := ParseIntervalArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	tc, ok := b.owned(ctx, chatID, id)
	if !ok {
		return
	}

	tc.IntervalMinutes = mins
	if err := b.store.UpdateTracked(ctx, tc); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("#%d %s will be reported every %s.", id, tc.Channel, formatInterval(mins)))
}

func (b *Bot) handlePause(ctx context.Context, chatID int64, args string) {
	b.setActive(ctx, chatID, args, false)
}

func (b *Bot) handleResume(ctx context.Context, chatID int64, args string) {
	b.setActive(ctx, chatID, args, true)
}

func (b *Bot) setActive(ctx context.Context, chatID int64, args string, active bool) {
	verb, usage := "paused", "Usage: /pause <id>"
	if active {
		verb, usage = "resumed", "Usage: /resume <id>"
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, usage)
		return
	}

	tc, ok := b.owned(ctx, chatID, id)
	if !ok {
		return
	}

	tc.IsActive = active
	if err := b.store.UpdateTracked(ctx, tc); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Reports for #%d %s %s.", id, tc.Channel, verb))
}
