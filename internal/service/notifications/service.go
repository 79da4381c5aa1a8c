package notifications

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
)

// Sender is the subset of the Telegram client used for fan-out.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) error
}

// Redemption describes a successful code redemption for the admin record.
type Redemption struct {
	User      user.Ref
	FirstName string
	Code      string
	At        time.Time
	// Undelivered is set when the reward could not be handed over.
	Undelivered bool
}

// Tally counts the outcome of a broadcast.
type Tally struct {
	Total     int
	Delivered int
	Failed    int
}

// Service formats and sends bot notifications. A failed send to one
// recipient is logged and never stops the rest of the fan-out.
type Service struct {
	tg      Sender
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewService paces sends at perSecond messages per second; zero disables pacing.
func NewService(tg Sender, perSecond float64, logger zerolog.Logger) *Service {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Service{
		tg:      tg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "notifications").Logger(),
	}
}

func (s *Service) deliver(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Notification skipped")
		return false
	}
	if err := s.tg.SendMessage(ctx, chatID, text, kb); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver notification")
		return false
	}
	return true
}

// CodeRedeemed sends the redemption record to every owner and admin.
func (s *Service) CodeRedeemed(ctx context.Context, r Redemption, recipients []int64) {
	text := buildRedeemedMessage(r)
	for _, id := range recipients {
		s.deliver(ctx, id, text, nil)
	}
}

// GiveawayProgress tells every participant the giveaway is about to end.
func (s *Service) GiveawayProgress(ctx context.Context, g *dg.Giveaway) {
	text := fmt.Sprintf(
		"📢 <b>%s Update</b>\n👥 Now %d participants!\n⏰ Time remaining: 1 min",
		html.EscapeString(dg.DisplayName(g.Name)),
		len(g.Participants),
	)
	kb := telegram.Keyboard{telegram.Row(telegram.DataButton("View Status", "view_status"))}
	for _, p := range g.Participants {
		s.deliver(ctx, p.ID, text, kb)
	}
}

// GiveawayEnded notifies winners, the other participants and the admins.
func (s *Service) GiveawayEnded(ctx context.Context, g *dg.Giveaway, admins []int64) {
	name := html.EscapeString(dg.DisplayName(g.Name))
	summary := buildSummary(g)

	for _, w := range g.Winners {
		gift := fmt.Sprintf("🎉 You won the <b>%s</b>!\n🎁 Gift: <code>%s</code>", name, html.EscapeString(w.Payload))
		if s.deliver(ctx, w.User.ID, gift, nil) {
			s.deliver(ctx, w.User.ID, summary, nil)
		}
	}

	loss := fmt.Sprintf("❌ <b>%s</b> ended.\nBetter luck next time!", name)
	for _, p := range g.Participants {
		if _, won := g.IsWinner(p.ID); won {
			continue
		}
		s.deliver(ctx, p.ID, loss, nil)
	}

	for _, id := range admins {
		s.deliver(ctx, id, summary, nil)
	}
}

// Broadcast sends text to every user and reports how many received it.
func (s *Service) Broadcast(ctx context.Context, text string, users []user.Ref) Tally {
	t := Tally{Total: len(users)}
	body := html.EscapeString(text)
	for _, u := range users {
		if s.deliver(ctx, u.ID, body, nil) {
			t.Delivered++
		} else {
			t.Failed++
		}
	}
	s.logger.Info().
		Int("total", t.Total).
		Int("delivered", t.Delivered).
		Int("failed", t.Failed).
		Msg("Broadcast completed")
	return t
}

func buildRedeemedMessage(r Redemption) string {
	firstName := r.FirstName
	if firstName == "" {
		firstName = "No Name"
	}
	var b strings.Builder
	b.WriteString("🎁 Code Redeemed!\n\n")
	fmt.Fprintf(&b, "• ┌ Name: %s\n", html.EscapeString(firstName))
	fmt.Fprintf(&b, "• ├ Username: %s\n", html.EscapeString(r.User.Handle()))
	fmt.Fprintf(&b, "• ├ UserID: <code>%d</code>\n", r.User.ID)
	fmt.Fprintf(&b, "• ├ Time: %s\n", r.At.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "• └ Code: <code>%s</code>", html.EscapeString(r.Code))
	if r.Undelivered {
		b.WriteString("\n\n⚠️ Delivery failed, the user was asked to contact an admin.")
	}
	return b.String()
}

func buildSummary(g *dg.Giveaway) string {
	names := make([]string, 0, len(g.Winners))
	for _, w := range g.Winners {
		if w.User.Username != "" {
			names = append(names, "@"+html.EscapeString(w.User.Username))
		} else {
			names = append(names, w.User.Mention(strconv.FormatInt(w.User.ID, 10)))
		}
	}
	list := "No winners"
	if len(names) > 0 {
		list = strings.Join(names, "\n")
	}
	return fmt.Sprintf(
		"📣 <b>%s</b> ended.\n👥 Total Participants: %d\n🏆 Winners:\n%s",
		html.EscapeString(dg.DisplayName(g.Name)),
		len(g.Participants),
		list,
	)
}

