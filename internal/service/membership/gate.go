package membership

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/open-builders/reward-rush-bot/internal/common/config"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
)

// Checker answers membership questions against Telegram.
type Checker interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	InviteLink(ctx context.Context, chatID int64) (string, error)
}

// Cache stores positive membership results.
type Cache interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	MarkMember(ctx context.Context, chatID, userID int64) error
}

// LinkCache stores exported invite links.
type LinkCache interface {
	Link(ctx context.Context, chatID int64) (string, bool, error)
	Set(ctx context.Context, chatID int64, url string) error
}

// Gate decides whether a user may use the bot based on required channels.
type Gate struct {
	channels []config.Channel
	checker  Checker
	cache    Cache
	links    LinkCache
	logger   zerolog.Logger
}

// NewGate builds a gate. cache and links may be nil.
func NewGate(channels []config.Channel, checker Checker, cache Cache, links LinkCache, logger zerolog.Logger) *Gate {
	return &Gate{
		channels: channels,
		checker:  checker,
		cache:    cache,
		links:    links,
		logger:   logger.With().Str("component", "membership").Logger(),
	}
}

// Missing returns the required channels userID has not joined. A failed
// lookup counts as not joined.
func (g *Gate) Missing(ctx context.Context, userID int64) []config.Channel {
	var missing []config.Channel
	for _, ch := range g.channels {
		if g.isMember(ctx, ch.ID, userID) {
			continue
		}
		missing = append(missing, ch)
	}
	return missing
}

func (g *Gate) isMember(ctx context.Context, chatID, userID int64) bool {
	if g.cache != nil {
		ok, err := g.cache.IsMember(ctx, chatID, userID)
		if err != nil {
			g.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Membership cache read failed")
		} else if ok {
			return true
		}
	}

	ok, err := g.checker.IsMember(ctx, chatID, userID)
	if err != nil {
		g.logger.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("Membership check failed")
		return false
	}
	if ok && g.cache != nil {
		if err := g.cache.MarkMember(ctx, chatID, userID); err != nil {
			g.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Membership cache write failed")
		}
	}
	return ok
}

// JoinKeyboard returns one "Join <name>" link button per channel. Channels
// whose invite link cannot be exported are left out.
func (g *Gate) JoinKeyboard(ctx context.Context, channels []config.Channel) telegram.Keyboard {
	kb := make(telegram.Keyboard, 0, len(channels))
	for _, ch := range channels {
		link, err := g.inviteLink(ctx, ch.ID)
		if err != nil {
			g.logger.Warn().Err(err).Int64("chat_id", ch.ID).Msg("Failed to export invite link")
			continue
		}
		kb = append(kb, telegram.Row(telegram.URLButton("Join "+ch.Name, link)))
	}
	return kb
}

func (g *Gate) inviteLink(ctx context.Context, chatID int64) (string, error) {
	if g.links != nil {
		if url, ok, err := g.links.Link(ctx, chatID); err == nil && ok {
			return url, nil
		}
	}
	url, err := g.checker.InviteLink(ctx, chatID)
	if err != nil {
		return "", err
	}
	if g.links != nil {
		if err := g.links.Set(ctx, chatID, url); err != nil {
			g.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Invite link cache write failed")
		}
	}
	return url, nil
}
