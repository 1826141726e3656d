// Package telegram reads channel metadata and history over MTProto.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"tg_analytics/internal/model"
)

// Paging limits of the history and dialog calls.
const (
	historyPageSize = 100
	MaxMessages     = 1000
	dialogScanLimit = 100
)

// API is the part of *tg.Client used by Source.
type API interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	ChannelsGetFullChannel(ctx context.Context, channel tg.InputChannelClass) (*tg.MessagesChatFull, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
}

// Source resolves channels and fetches their messages.
type Source struct {
	api    API
	logger *slog.Logger
}

// NewSource creates a Source on top of an authorized MTProto API.
func NewSource(api API, logger *slog.Logger) *Source {
	return &Source{api: api, logger: logger}
}

// ChannelInfo returns channel metadata. The subscriber count is best-effort:
// when the full channel cannot be loaded the count from the resolved peer is used.
func (s *Source) ChannelInfo(ctx context.Context, ident string) (model.ChannelInfo, error) {
	ch, err := s.resolve(ctx, ident)
	if err != nil {
		return model.ChannelInfo{}, err
	}

	info := model.ChannelInfo{
		ID:       ch.ID,
		Title:    ch.Title,
		Username: ch.Username,
	}
	if n, ok := ch.GetParticipantsCount(); ok {
		info.Subscribers = n
	}

	full, err := s.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash})
	if err != nil {
		if mapped := mapError(err); isRateLimit(mapped) {
			return model.ChannelInfo{}, mapped
		}
		s.logger.Warn("full channel unavailable", "channel", ident, "error", err)
		return info, nil
	}
	if cf, ok := full.FullChat.(*tg.ChannelFull); ok {
		if n, ok := cf.GetParticipantsCount(); ok {
			info.Subscribers = n
		}
		info.Description = cf.About
	}
	return info, nil
}

// FetchMessages returns up to limit most recent messages of a channel, newest first.
// limit is capped at MaxMessages.
func (s *Source) FetchMessages(ctx context.Context, ident string, limit int) ([]model.RawMessage, error) {
	if limit <= 0 || limit > MaxMessages {
		limit = MaxMessages
	}
	ch, err := s.resolve(ctx, ident)
	if err != nil {
		return nil, err
	}
	peer := &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}

	out := make([]model.RawMessage, 0, limit)
	offsetID := 0
	for len(out) < limit {
		pageSize := min(historyPageSize, limit-len(out))
		res, err := s.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("get history: %w", mapError(err))
		}

		page := historyMessages(res)
		if len(page) == 0 {
			break
		}
		for _, mc := range page {
			id := mc.GetID()
			if offsetID == 0 || id < offsetID {
				offsetID = id
			}
			if m, ok := mc.(*tg.Message); ok && len(out) < limit {
				out = append(out, convertMessage(m))
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	s.logger.Debug("fetched messages", "channel", ident, "count", len(out))
	return out, nil
}

// SearchChannels finds channels by username first and then by title among
// the account's dialogs.
func (s *Source) SearchChannels(ctx context.Context, query string) ([]model.ChannelRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if ch, err := s.resolve(ctx, query); err == nil {
		return []model.ChannelRef{channelRef(ch)}, nil
	} else if isRateLimit(err) {
		return nil, err
	}

	chats, err := s.dialogChats(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimPrefix(query, "@"))
	var out []model.ChannelRef
	for _, c := range chats {
		ch, ok := c.(*tg.Channel)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(ch.Title), needle) || strings.EqualFold(ch.Username, needle) {
			out = append(out, channelRef(ch))
		}
	}
	return out, nil
}

// resolve turns a username, t.me link or numeric id into a channel.
func (s *Source) resolve(ctx context.Context, ident string) (*tg.Channel, error) {
	ident = normalizeIdent(ident)
	if ident == "" {
		return nil, fmt.Errorf("empty channel identifier: %w", model.ErrNotFound)
	}
	if id, ok := parseChannelID(ident); ok {
		return s.resolveByID(ctx, id)
	}

	res, err := s.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: ident})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ident, mapError(err))
	}
	peer, ok := res.Peer.(*tg.PeerChannel)
	if !ok {
		return nil, fmt.Errorf("%s is not a channel: %w", ident, model.ErrNotFound)
	}
	return findChannel(res.Chats, peer.ChannelID, ident)
}

// resolveByID looks a channel up among dialogs, the only place its access hash is known.
func (s *Source) resolveByID(ctx context.Context, id int64) (*tg.Channel, error) {
	chats, err := s.dialogChats(ctx)
	if err != nil {
		return nil, err
	}
	return findChannel(chats, id, strconv.FormatInt(id, 10))
}

func (s *Source) dialogChats(ctx context.Context) ([]tg.ChatClass, error) {
	res, err := s.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogScanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", mapError(err))
	}
	switch d := res.(type) {
	case *tg.MessagesDialogs:
		return d.Chats, nil
	case *tg.MessagesDialogsSlice:
		return d.Chats, nil
	default:
		return nil, nil
	}
}

func findChannel(chats []tg.ChatClass, id int64, ident string) (*tg.Channel, error) {
	for _, c := range chats {
		switch ch := c.(type) {
		case *tg.Channel:
			if ch.ID == id {
				return ch, nil
			}
		case *tg.ChannelForbidden:
			if ch.ID == id {
				return nil, fmt.Errorf("channel %s: %w", ident, model.ErrAccessDenied)
			}
		}
	}
	return nil, fmt.Errorf("channel %s: %w", ident, model.ErrNotFound)
}

func historyMessages(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesMessages:
		return r.Messages
	default:
		return nil
	}
}

func channelRef(ch *tg.Channel) model.ChannelRef {
	return model.ChannelRef{
		ID:        ch.ID,
		Title:     ch.Title,
		Username:  ch.Username,
		IsChannel: ch.Broadcast,
	}
}

// normalizeIdent strips "@" and t.me link prefixes.
func normalizeIdent(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/", "@"} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.TrimSuffix(s, "/")
}

// parseChannelID accepts bot-API style "-100<id>" ids and bare positive ids.
func parseChannelID(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(s, "-100") {
		v, err = strconv.ParseInt(strings.TrimPrefix(s, "-100"), 10, 64)
		if err != nil {
			return 0, false
		}
	}
	if v <= 0 {
		return 0, false
	}
	return v, true
}
