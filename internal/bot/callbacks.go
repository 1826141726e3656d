package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdAnalyze = "analyze"
	cmdAI      = "ai"
	cmdPDF     = "pdf"
	cmdUntrack = "untrack"

	// Telegram rejects callback data longer than this.
	maxCallbackData = 64
)

// actionKeyboard builds a one-row keyboard, leaving out buttons whose data
// does not fit.
func actionKeyboard(buttons ...tgbotapi.InlineKeyboardButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		if btn.CallbackData != nil && len(*btn.CallbackData) <= maxCallbackData {
			row = append(row, btn)
		}
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

// handleCallback serves inline buttons. Data is "<action>:<args>" where args
// has the same form as the matching command arguments.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, args, ok := strings.Cut(data, ":")
	if !ok || args == "" {
		return
	}

	b.log.Info("callback",
		"action", action,
		"args", args,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdAnalyze:
		b.handleAnalyze(ctx, chatID, args)
	case cmdAI:
		b.handleAI(ctx, chatID, args)
	case cmdPDF:
		b.handlePDF(ctx, chatID, args)
	case "untrack_confirm":
		id, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			return
		}
		tc, ok := b.owned(ctx, chatID, id)
		if !ok {
			return
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Stop tracking #%d %s?", id, tc.Channel))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes, stop", fmt.Sprintf("%s:%d", cmdUntrack, id)),
				tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:0"),
			),
		)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send untrack confirmation", "error", err)
		}
	case cmdUntrack:
		b.handleUntrack(ctx, chatID, args)
	}
}
