package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// TerminalAuth asks for the phone, code and 2FA password on a terminal.
type TerminalAuth struct {
	in  *bufio.Reader
	out io.Writer
}

var _ auth.UserAuthenticator = (*TerminalAuth)(nil)

// NewTerminalAuth creates an interactive authenticator.
func NewTerminalAuth(in io.Reader, out io.Writer) *TerminalAuth {
	return &TerminalAuth{in: bufio.NewReader(in), out: out}
}

func (a *TerminalAuth) ask(prompt string) (string, error) {
	if _, err := fmt.Fprint(a.out, prompt); err != nil {
		return "", err
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Phone asks for the phone number in international format.
func (a *TerminalAuth) Phone(_ context.Context) (string, error) {
	return a.ask("Phone number (+79991234567): ")
}

// Password asks for the two-factor password.
func (a *TerminalAuth) Password(_ context.Context) (string, error) {
	return a.ask("2FA password: ")
}

// Code asks for the login code sent by Telegram.
func (a *TerminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.ask("Code from Telegram: ")
}

// AcceptTermsOfService accepts the terms silently.
func (a *TerminalAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

// SignUp is refused: only existing accounts can log in.
func (a *TerminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported")
}

// Login runs the interactive flow when needed and returns the logged-in user.
// Bot accounts are rejected since they cannot read channel history.
func Login(ctx context.Context, client *telegram.Client, flow auth.UserAuthenticator) (*tg.User, error) {
	if err := client.Auth().IfNecessary(ctx, auth.NewFlow(flow, auth.SendCodeOptions{})); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	me, err := client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("get self: %w", err)
	}
	if me.Bot {
		return nil, fmt.Errorf("@%s is a bot account: %w", me.Username, ErrUnauthorized)
	}
	return me, nil
}
