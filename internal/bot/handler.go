package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
	"github.com/open-builders/reward-rush-bot/internal/service/admin"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/service/membership"
	"github.com/open-builders/reward-rush-bot/internal/service/notifications"
	"github.com/open-builders/reward-rush-bot/internal/service/ratelimit"
	"github.com/open-builders/reward-rush-bot/internal/service/redemption"
)

// Messenger is the part of the Telegram client the router talks to directly.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	SendBytes(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	Download(ctx context.Context, fileID string) ([]byte, error)
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
}

// FileStore keeps uploaded reward files on disk.
type FileStore interface {
	Save(originalName string, data []byte) (string, error)
	Remove(path string) error
	RemoveAll(paths []string) error
}

// Deps are the services the router dispatches to.
type Deps struct {
	Messenger Messenger
	Admin     *admin.Service
	Engine    *redemption.Engine
	Giveaways *giveaway.Manager
	Gate      *membership.Gate
	Limits    *ratelimit.Tracker
	Notifier  *notifications.Service
	Files     FileStore
}

// Options tune texts and defaults.
type Options struct {
	SupportContacts      string
	DefaultAccountPrefix string
	DefaultFilePrefix    string
	SessionTimeout       time.Duration
}

// Handler routes Telegram updates to the services. Updates are handled one
// at a time; timer callbacks and the session janitor run alongside.
type Handler struct {
	tg        Messenger
	admin     *admin.Service
	engine    *redemption.Engine
	giveaways *giveaway.Manager
	gate      *membership.Gate
	limits    *ratelimit.Tracker
	notifier  *notifications.Service
	files     FileStore
	sessions  *SessionStore
	opts      Options
	now       func() time.Time
	logger    zerolog.Logger
}

func NewHandler(deps Deps, opts Options, logger zerolog.Logger) *Handler {
	if opts.DefaultAccountPrefix == "" {
		opts.DefaultAccountPrefix = "KeyShareBD"
	}
	if opts.DefaultFilePrefix == "" {
		opts.DefaultFilePrefix = "File"
	}

	h := &Handler{
		tg:        deps.Messenger,
		admin:     deps.Admin,
		engine:    deps.Engine,
		giveaways: deps.Giveaways,
		gate:      deps.Gate,
		limits:    deps.Limits,
		notifier:  deps.Notifier,
		files:     deps.Files,
		opts:      opts,
		now:       time.Now,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
	h.sessions = NewSessionStore(opts.SessionTimeout, h.dropSession)
	return h
}

// Sessions exposes the session store to the janitor.
func (h *Handler) Sessions() *SessionStore {
	return h.sessions
}

// Run consumes updates until ctx is done or the channel closes.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	h.logger.Info().Msg("Bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("Bot stopping")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate processes a single update. A panic is logged and swallowed so
// one bad update cannot stop the loop.
func (h *Handler) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Interface("panic", r).
				Int("update_id", u.UpdateID).
				Bytes("stack", debug.Stack()).
				Msg("Panic while handling update")
		}
	}()

	switch {
	case u.Message != nil:
		h.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		h.handleCallback(ctx, u.CallbackQuery)
	case u.ChatJoinRequest != nil:
		h.handleJoinRequest(ctx, u.ChatJoinRequest)
	}
}

func (h *Handler) handleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) {
	if err := h.tg.ApproveJoinRequest(ctx, req.Chat.ID, req.From.ID); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", req.Chat.ID).Int64("user_id", req.From.ID).Msg("Failed to approve join request")
		return
	}
	h.logger.Debug().Int64("chat_id", req.Chat.ID).Int64("user_id", req.From.ID).Msg("Join request approved")
}

// admit answers banned users and users missing a required channel, and
// reports whether the caller may go on. With quiet set, banned users get no
// reply.
func (h *Handler) admit(ctx context.Context, chatID, userID int64, quiet bool) bool {
	if h.admin.IsBanned(userID) {
		if !quiet {
			h.send(ctx, chatID, bannedText(h.opts.SupportContacts), nil)
		}
		return false
	}
	return h.channelsJoined(ctx, chatID, userID)
}

func (h *Handler) channelsJoined(ctx context.Context, chatID, userID int64) bool {
	missing := h.gate.Missing(ctx, userID)
	if len(missing) == 0 {
		return true
	}
	h.send(ctx, chatID, joinChannelsText(len(missing)), h.gate.JoinKeyboard(ctx, missing))
	return false
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) {
	if err := h.tg.SendMessage(ctx, chatID, text, kb); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (h *Handler) edit(ctx context.Context, msg *tgbotapi.Message, text string, kb telegram.Keyboard) {
	if msg == nil {
		return
	}
	if err := h.tg.EditMessage(ctx, msg.Chat.ID, msg.MessageID, text, kb); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to edit message")
	}
}

// dropSession cleans up after a session that expired or was replaced.
func (h *Handler) dropSession(userID int64, s Session) {
	log := h.logger.With().Int64("user_id", userID).Str("state", s.State.String()).Logger()

	switch s.State {
	case AwaitingGiveawayPool:
		err := h.giveaways.Arm(s.GiveawayID)
		if err != nil && !errors.Is(err, giveaway.ErrNotFound) {
			log.Error().Err(err).Str("giveaway_id", s.GiveawayID).Msg("Failed to arm abandoned giveaway")
			return
		}
		log.Info().Str("giveaway_id", s.GiveawayID).Msg("Giveaway armed without a pool")
	case AwaitingFileUploads:
		if err := h.files.RemoveAll(s.Files); err != nil {
			log.Warn().Err(err).Msg("Failed to remove abandoned uploads")
		}
		log.Info().Int("files", len(s.Files)).Msg("Upload session abandoned")
	default:
		log.Debug().Msg("Session dropped")
	}
}

// throttled tells the user how long to wait and records the rejection.
func (h *Handler) throttled(ctx context.Context, chatID, userID int64, scope string, wait time.Duration) {
	err := apperrors.NewRateLimitError(scope, wait).WithUserID(userID)
	h.logger.Debug().Err(err).Int64("user_id", userID).Msg("Request throttled")

	format := "⏳ Wait %d sec before redeeming again."
	if scope == "commands" {
		format = "⏳ Too many commands! Wait %d sec."
	}
	h.send(ctx, chatID, waitText(format, wait), nil)
}

// issueFailureText maps an Issue error to a reply. userFault is set when the
// error came from the admin's input rather than from storage.
func issueFailureText(err error) (text string, userFault bool) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || !appErr.IsUserFacing() {
		return textSomethingFailed, false
	}
	if appErr.Details["field"] == "prefix" {
		return textInvalidPrefix, true
	}
	return "❌ " + html.EscapeString(appErr.Message), true
}

func requesterOf(from *tgbotapi.User) redemption.Requester {
	return redemption.Requester{User: refOf(from), FirstName: from.FirstName}
}

func refOf(from *tgbotapi.User) user.Ref {
	return user.Ref{ID: from.ID, Username: from.UserName}
}

func userErrorText(err error) string {
	switch {
	case errors.Is(err, giveaway.ErrNameTaken):
		return "⚠️ An active giveaway with this name already exists."
	case errors.Is(err, giveaway.ErrInvalidName):
		return "❌ Giveaway names may only contain letters, digits and underscores."
	case errors.Is(err, giveaway.ErrInvalidDuration):
		return textBadDuration
	case errors.Is(err, giveaway.ErrEmptyPool):
		return "No valid accounts found."
	case errors.Is(err, giveaway.ErrNotFound):
		return textGiveawayGone
	default:
		return fmt.Sprintf("❌ %v", err)
	}
}
