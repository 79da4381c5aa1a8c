package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
)

// InviteLinkEntry is an exported channel invite link and when it was fetched.
type InviteLinkEntry struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// InviteLinkCache keeps exported invite links. Exporting a link revokes the
// previous primary one, so the bot should not do it on every /start.
type InviteLinkCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewInviteLinkCache(client *rplatform.Client, ttl time.Duration) *InviteLinkCache {
	return &InviteLinkCache{client: client, ttl: ttl}
}

func (c *InviteLinkCache) key(chatID int64) string {
	return fmt.Sprintf("channel:%d:invite_link", chatID)
}

// Get returns the cached entry, or nil on a miss.
func (c *InviteLinkCache) Get(ctx context.Context, chatID int64) (*InviteLinkEntry, error) {
	v, err := c.client.Get(ctx, c.key(chatID)).Bytes()
	if rplatform.IsMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e InviteLinkEntry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Set stores the link with TTL.
func (c *InviteLinkCache) Set(ctx context.Context, chatID int64, url string) error {
	b, err := json.Marshal(InviteLinkEntry{URL: url, FetchedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(chatID), b, c.ttl).Err()
}

// Link returns just the cached URL and whether it was present.
func (c *InviteLinkCache) Link(ctx context.Context, chatID int64) (string, bool, error) {
	e, err := c.Get(ctx, chatID)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.URL, true, nil
}
