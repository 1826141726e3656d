package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_analytics/internal/config"
	"tg_analytics/internal/model"
	"tg_analytics/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Analyzer is the report service used by the bot.
type Analyzer interface {
	Analyze(ctx context.Context, caller, channel string, hoursBack int) (*model.Report, error)
	Narrative(ctx context.Context, rep *model.Report) (string, bool, error)
	PDF(ctx context.Context, rep *model.Report, narrative string) ([]byte, error)
	Location() *time.Location
}

// Bot is the Telegram bot that answers analytics commands and delivers
// scheduled reports.
type Bot struct {
	api   telegramAPI
	svc   Analyzer
	store storage.Storage
	cfg   *config.Config
	log   *slog.Logger
	wg    sync.WaitGroup
}

// New creates a Bot with the given Telegram token, report service, storage, and config.
func New(token string, svc Analyzer, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:   api,
		svc:   svc,
		store: store,
		cfg:   cfg,
		log:   log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
// Commands are handled concurrently; Run waits for them before returning.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update to its handler. Updates without a user, such as
// anonymous admin or sender chat messages, are ignored.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || !b.cfg.IsUserAllowed(cq.From.ID) {
			return
		}
		b.spawn(func() { b.handleCallback(ctx, cq) })
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Access denied.")
		return
	}
	b.spawn(func() { b.handleCommand(ctx, msg) })
}

func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// SendDocument sends a file to the given chat.
func (b *Bot) SendDocument(chatID int64, name string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdAnalyze:
		b.handleAnalyze(ctx, chatID, args)
	case cmdAI:
		b.handleAI(ctx, chatID, args)
	case cmdPDF:
		b.handlePDF(ctx, chatID, args)
	case "track":
		b.handleTrack(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID)
	case cmdUntrack:
		b.handleUntrack(ctx, chatID, args)
	case "pause":
		b.handlePause(ctx, chatID, args)
	case "resume":
		b.handleResume(ctx, chatID, args)
	case "interval":
		b.handleInterval(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
