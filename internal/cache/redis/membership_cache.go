package redis

import (
	"context"
	"fmt"
	"time"

	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
)

// MembershipCache remembers positive channel membership checks for a while
// so repeated menu taps do not hit getChatMember every time.
type MembershipCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewMembershipCache(client *rplatform.Client, ttl time.Duration) *MembershipCache {
	return &MembershipCache{client: client, ttl: ttl}
}

func (c *MembershipCache) key(chatID, userID int64) string {
	return fmt.Sprintf("membership:%d:%d", chatID, userID)
}

// IsMember reports a cached positive result. A miss is (false, nil).
func (c *MembershipCache) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	err := c.client.Get(ctx, c.key(chatID, userID)).Err()
	if rplatform.IsMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkMember stores a positive result with TTL.
func (c *MembershipCache) MarkMember(ctx context.Context, chatID, userID int64) error {
	return c.client.Set(ctx, c.key(chatID, userID), "1", c.ttl).Err()
}
