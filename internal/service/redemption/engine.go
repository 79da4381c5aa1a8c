package redemption

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
	"github.com/open-builders/reward-rush-bot/internal/common/validation"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
	"github.com/open-builders/reward-rush-bot/internal/service/codes"
	"github.com/open-builders/reward-rush-bot/internal/service/notifications"
)

// Status is the result class of a redemption attempt.
type Status int

const (
	StatusNotFound Status = iota
	StatusAlreadyRedeemed
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyRedeemed:
		return "already_redeemed"
	default:
		return "not_found"
	}
}

// Requester is the user redeeming a code.
type Requester struct {
	User      user.Ref
	FirstName string
}

// Outcome describes what a redemption did.
type Outcome struct {
	Status Status
	// Item is a copy of the matched reward, nil when not found.
	Item *reward.Item
	// RemainingAvailable reports whether any other reward is still unredeemed.
	RemainingAvailable bool
	// DeliveryErr is set when the reward was marked redeemed but could not be handed over.
	DeliveryErr error
}

// Deliverer hands rewards to users.
type Deliverer interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) error
	SendFile(ctx context.Context, chatID int64, path, caption string) error
}

// Notifier records redemptions for admins.
type Notifier interface {
	CodeRedeemed(ctx context.Context, r notifications.Redemption, recipients []int64)
}

// Recipients lists who receives admin notifications.
type Recipients interface {
	Recipients() []int64
}

// Cooldowns starts the per-user redeem cooldown.
type Cooldowns interface {
	MarkRedeemed(userID int64)
}

// FileRemover deletes a delivered reward file.
type FileRemover interface {
	Remove(path string) error
}

// Engine performs at-most-once redemption of reward codes.
type Engine struct {
	store      *jsonstore.Store
	tg         Deliverer
	files      FileRemover
	notifier   Notifier
	recipients Recipients
	cooldowns  Cooldowns
	now        func() time.Time
	logger     zerolog.Logger
}

func NewEngine(
	store *jsonstore.Store,
	tg Deliverer,
	files FileRemover,
	notifier Notifier,
	recipients Recipients,
	cooldowns Cooldowns,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		store:      store,
		tg:         tg,
		files:      files,
		notifier:   notifier,
		recipients: recipients,
		cooldowns:  cooldowns,
		now:        time.Now,
		logger:     logger.With().Str("component", "redemption").Logger(),
	}
}

// Redeem claims code for requester and delivers the reward to chatID.
// The lookup, the redeemed check and the flip happen under one store lock;
// delivery and admin notification happen after it is released.
func (e *Engine) Redeem(ctx context.Context, requester Requester, chatID int64, code string) (*Outcome, error) {
	code = strings.TrimSpace(code)
	out := &Outcome{Status: StatusNotFound}

	err := e.store.Update(func(doc *jsonstore.Document) error {
		idx := -1
		for i := range doc.Accounts {
			if doc.Accounts[i].RedeemCode == code {
				idx = i
				break
			}
		}

		if idx < 0 {
			out.RemainingAvailable = anyAvailable(doc.Accounts, -1)
			return jsonstore.ErrSkipSave
		}

		item := &doc.Accounts[idx]
		if item.Redeemed {
			out.Status = StatusAlreadyRedeemed
			out.RemainingAvailable = anyAvailable(doc.Accounts, idx)
			return jsonstore.ErrSkipSave
		}

		by := requester.User
		item.Redeemed = true
		item.RedeemedBy = &by

		copied := *item
		out.Status = StatusSuccess
		out.Item = &copied
		out.RemainingAvailable = anyAvailable(doc.Accounts, idx)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redeem %s: %w", code, err)
	}
	if out.Status != StatusSuccess {
		e.logger.Info().
			Int64("user_id", requester.User.ID).
			Str("code", code).
			Str("status", out.Status.String()).
			Msg("Redemption rejected")
		return out, nil
	}

	if e.cooldowns != nil {
		e.cooldowns.MarkRedeemed(requester.User.ID)
	}

	out.DeliveryErr = e.deliver(ctx, chatID, out.Item)
	if out.DeliveryErr != nil {
		e.logger.Error().
			Err(out.DeliveryErr).
			Int64("user_id", requester.User.ID).
			Str("code", code).
			Msg("Reward redeemed but not delivered")
	} else {
		e.logger.Info().Int64("user_id", requester.User.ID).Str("code", code).Msg("Code redeemed")
	}

	if e.notifier != nil && e.recipients != nil {
		e.notifier.CodeRedeemed(ctx, notifications.Redemption{
			User:        requester.User,
			FirstName:   requester.FirstName,
			Code:        code,
			At:          e.now(),
			Undelivered: out.DeliveryErr != nil,
		}, e.recipients.Recipients())
	}

	return out, nil
}

func (e *Engine) deliver(ctx context.Context, chatID int64, item *reward.Item) error {
	switch item.Type {
	case reward.TypeDeliveredFile:
		if err := e.tg.SendFile(ctx, chatID, item.Payload, "🎉 Congratulations! Here is your file! 🎉"); err != nil {
			return apperrors.NewDeliveryError(chatID, err)
		}
		if e.files != nil {
			if err := e.files.Remove(item.Payload); err != nil {
				e.logger.Warn().Err(err).Str("path", item.Payload).Msg("Failed to remove delivered file")
			}
		}
		return nil
	default:
		if err := e.tg.SendMessage(ctx, chatID, inlineRewardMessage(item.Payload), nil); err != nil {
			return apperrors.NewDeliveryError(chatID, err)
		}
		return nil
	}
}

// Issue adds one reward per payload and returns the generated codes in order.
func (e *Engine) Issue(ctx context.Context, prefix string, kind reward.Type, payloads []string) ([]string, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, apperrors.NewValidationError("prefix", err.Error())
	}
	if len(payloads) == 0 {
		return nil, apperrors.NewValidationError("payloads", "nothing to add")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issued := make([]string, 0, len(payloads))
	err := e.store.Update(func(doc *jsonstore.Document) error {
		taken := make(map[string]struct{}, len(doc.Accounts)+len(payloads))
		for _, item := range doc.Accounts {
			taken[item.RedeemCode] = struct{}{}
		}
		for _, payload := range payloads {
			code, err := codes.GenerateUnique(prefix, taken)
			if err != nil {
				return err
			}
			doc.Accounts = append(doc.Accounts, reward.Item{
				Type:       kind,
				Payload:    payload,
				RedeemCode: code,
			})
			issued = append(issued, code)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue codes: %w", err)
	}

	e.logger.Info().Str("prefix", prefix).Str("type", string(kind)).Int("count", len(issued)).Msg("Codes issued")
	return issued, nil
}

// Availability reports whether any reward is still unredeemed.
func (e *Engine) Availability(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	doc, err := e.store.Load()
	if err != nil {
		return false, err
	}
	return anyAvailable(doc.Accounts, -1), nil
}

func anyAvailable(items []reward.Item, skip int) bool {
	for i, item := range items {
		if i != skip && item.Available() {
			return true
		}
	}
	return false
}

func inlineRewardMessage(payload string) string {
	return "🎉 Congratulations! You are the winner! 🎉\n\n" +
		"Account: \n<code>" + html.EscapeString(payload) + "</code>\n\n" +
		"⚠️ Send a screenshot after login.\n" +
		"This is mandatory, otherwise you will be banned from the bot and will no longer be able to join giveaways!\n\n" +
		"⏳ Wait 5 min before redeeming again."
}

