package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrUnauthorized means the session file holds no logged-in user.
var ErrUnauthorized = errors.New("telegram session is not authorized, run the login command first")

// NewClient creates an MTProto client persisting its session in sessionFile.
func NewClient(apiID int, apiHash, sessionFile string, logger *zap.Logger) (*telegram.Client, error) {
	if dir := filepath.Dir(sessionFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionFile},
		Logger:         logger,
	}), nil
}

// NewZapLogger builds the logger handed to the MTProto client. Protocol
// chatter is only worth seeing when debugging, so anything below debug maps to warn.
func NewZapLogger(level string) (*zap.Logger, error) {
	zl := zapcore.WarnLevel
	if strings.EqualFold(level, "debug") {
		zl = zapcore.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger.Named("mtproto"), nil
}

// EnsureAuthorized fails with ErrUnauthorized when the session is not logged in
// or belongs to a bot, which cannot read channel history.
func EnsureAuthorized(ctx context.Context, client *telegram.Client) error {
	status, err := client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("auth status: %w", err)
	}
	if !status.Authorized {
		return ErrUnauthorized
	}
	if status.User != nil && status.User.Bot {
		return fmt.Errorf("session belongs to bot @%s: %w", status.User.Username, ErrUnauthorized)
	}
	return nil
}
