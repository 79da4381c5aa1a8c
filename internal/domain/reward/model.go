package reward

import "github.com/open-builders/reward-rush-bot/internal/domain/user"

// Type is the way a reward reaches its redeemer.
type Type string

const (
	// TypeInlineValue rewards carry their secret in the payload and are sent as text.
	TypeInlineValue Type = "inline_value"
	// TypeDeliveredFile rewards point at a stored file sent as a document.
	TypeDeliveredFile Type = "delivered_file"
)

// Item is a single redeemable reward.
type Item struct {
	Type       Type      `json:"type"`
	Payload    string    `json:"payload"`
	RedeemCode string    `json:"redeem_code"`
	Redeemed   bool      `json:"redeemed"`
	RedeemedBy *user.Ref `json:"redeemed_by,omitempty"`
}

// Available reports whether the item can still be redeemed.
func (i Item) Available() bool {
	return !i.Redeemed
}
