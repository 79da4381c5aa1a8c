package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/open-builders/reward-rush-bot/internal/common/validation"
	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/service/admin"
	"github.com/open-builders/reward-rush-bot/internal/service/codes"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/service/redemption"
)

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}

	if msg.IsCommand() && h.handleCommand(ctx, msg) {
		return
	}
	if sess, ok := h.sessions.Get(msg.From.ID); ok {
		h.handleSessionInput(ctx, msg, sess)
		return
	}
	if msg.ReplyToMessage != nil && h.admin.IsAdmin(msg.From.ID) {
		h.handleAdminReply(ctx, msg)
		return
	}
	h.handlePlain(ctx, msg)
}

// handleCommand reports false for commands it does not know, which are then
// treated like plain messages.
func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	cmd := strings.ToLower(msg.Command())
	h.logger.Debug().Int64("user_id", msg.From.ID).Str("command", cmd).Msg("Command received")

	switch cmd {
	case "start":
		h.cmdStart(ctx, msg)
	case "cmd":
		h.cmdHelp(ctx, msg)
	case "redeem":
		h.cmdRedeem(ctx, msg)
	case "add":
		h.cmdAdd(ctx, msg)
	case "addfile":
		h.cmdAddFile(ctx, msg)
	case "done":
		h.cmdDone(ctx, msg)
	case "random":
		h.cmdRandom(ctx, msg)
	case "addadmin":
		h.cmdAddAdmin(ctx, msg)
	case "ban", "unban":
		h.cmdBan(ctx, msg, cmd == "ban")
	case "tuser":
		h.cmdTotalUsers(ctx, msg)
	case "backup":
		h.cmdBackup(ctx, msg)
	case "clear":
		h.cmdClear(ctx, msg)
	case "broadcast":
		h.cmdBroadcast(ctx, msg)
	default:
		return false
	}
	return true
}

func (h *Handler) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	id := msg.From.ID
	if !h.admit(ctx, msg.Chat.ID, id, false) {
		return
	}
	if ok, wait := h.limits.CheckRateLimit(id); !ok {
		h.throttled(ctx, msg.Chat.ID, id, "commands", wait)
		return
	}

	if added, err := h.admin.RegisterUser(refOf(msg.From)); err != nil {
		h.logger.Error().Err(err).Int64("user_id", id).Msg("Failed to register user")
	} else if added {
		h.logger.Info().Int64("user_id", id).Msg("New user registered")
	}

	h.send(ctx, msg.Chat.ID, textWelcome, mainMenu(h.admin.IsAdmin(id), h.admin.IsOwner(id)))
}

func (h *Handler) cmdHelp(ctx context.Context, msg *tgbotapi.Message) {
	id := msg.From.ID
	if !h.admit(ctx, msg.Chat.ID, id, true) {
		return
	}
	if h.admin.IsAdmin(id) {
		h.send(ctx, msg.Chat.ID, commandsText(h.admin.IsOwner(id)), backKeyboard())
		return
	}
	h.send(ctx, msg.Chat.ID, guideText(h.opts.SupportContacts), backKeyboard())
}

func (h *Handler) cmdRedeem(ctx context.Context, msg *tgbotapi.Message) {
	id := msg.From.ID
	if !h.admit(ctx, msg.Chat.ID, id, false) {
		return
	}
	if ok, wait := h.limits.CheckRateLimit(id); !ok {
		h.throttled(ctx, msg.Chat.ID, id, "commands", wait)
		return
	}
	if ok, wait := h.limits.CheckRedeemCooldown(id); !ok {
		h.throttled(ctx, msg.Chat.ID, id, "redeem", wait)
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.send(ctx, msg.Chat.ID, textRedeemUsage, backKeyboard())
		return
	}
	h.redeem(ctx, msg, args[0])
}

func (h *Handler) redeem(ctx context.Context, msg *tgbotapi.Message, code string) {
	out, err := h.engine.Redeem(ctx, requesterOf(msg.From), msg.Chat.ID, code)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("Redemption failed")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
		return
	}

	remaining := textCodesExhausted
	if out.RemainingAvailable {
		remaining = textCodesRemain
	}

	switch out.Status {
	case redemption.StatusSuccess:
		if out.DeliveryErr != nil {
			h.send(ctx, msg.Chat.ID, textDeliveryFailed, nil)
		}
	case redemption.StatusAlreadyRedeemed:
		h.send(ctx, msg.Chat.ID, "❌ Sorry, this code was already redeemed by someone else.\n"+remaining, nil)
	default:
		h.send(ctx, msg.Chat.ID, "❌ Invalid or expired code. Try again!\n\n"+remaining, nil)
	}
}

func (h *Handler) requireAdmin(ctx context.Context, msg *tgbotapi.Message) bool {
	if h.admin.IsAdmin(msg.From.ID) {
		return true
	}
	h.send(ctx, msg.Chat.ID, textNotAuthorized, nil)
	return false
}

func (h *Handler) requireOwner(ctx context.Context, msg *tgbotapi.Message, text string) bool {
	if h.admin.IsOwner(msg.From.ID) {
		return true
	}
	h.send(ctx, msg.Chat.ID, text, nil)
	return false
}

func (h *Handler) prefixArg(msg *tgbotapi.Message, fallback string) (string, bool) {
	args := strings.Fields(msg.CommandArguments())
	prefix := fallback
	if len(args) > 0 {
		prefix = args[0]
	}
	return prefix, validation.ValidatePrefix(prefix) == nil
}

func (h *Handler) cmdAdd(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}
	prefix, ok := h.prefixArg(msg, h.opts.DefaultAccountPrefix)
	if !ok {
		h.send(ctx, msg.Chat.ID, textInvalidPrefix, nil)
		return
	}
	h.sessions.Start(msg.From.ID, Session{State: AwaitingAccountList, Prefix: prefix})
	h.send(ctx, msg.Chat.ID, "Please send the accounts in the required format, one per line.", nil)
}

func (h *Handler) cmdAddFile(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}
	prefix, ok := h.prefixArg(msg, h.opts.DefaultFilePrefix)
	if !ok {
		h.send(ctx, msg.Chat.ID, textInvalidPrefix, nil)
		return
	}
	h.sessions.Start(msg.From.ID, Session{State: AwaitingFileUploads, Prefix: prefix})
	h.send(ctx, msg.Chat.ID, "✅ Session started. Please upload your text files now. Send /done when you are finished.", nil)
}

func (h *Handler) cmdDone(ctx context.Context, msg *tgbotapi.Message) {
	sess, ok := h.sessions.Get(msg.From.ID)
	if !ok || sess.State != AwaitingFileUploads {
		h.send(ctx, msg.Chat.ID, "No upload session in progress. Start one with /addfile.", nil)
		return
	}
	sess, _ = h.sessions.End(msg.From.ID)

	if len(sess.Files) == 0 {
		h.send(ctx, msg.Chat.ID, "No files were uploaded. Session cancelled.", nil)
		return
	}

	issued, err := h.engine.Issue(ctx, sess.Prefix, reward.TypeDeliveredFile, sess.Files)
	if err != nil {
		text, userFault := issueFailureText(err)
		if !userFault {
			h.logger.Error().Err(err).Int("files", len(sess.Files)).Msg("Failed to issue file codes")
		}
		if rmErr := h.files.RemoveAll(sess.Files); rmErr != nil {
			h.logger.Warn().Err(rmErr).Msg("Failed to remove uploads")
		}
		h.send(ctx, msg.Chat.ID, text, nil)
		return
	}
	header := fmt.Sprintf("✅ Processed %d files. The redeem codes are:", len(issued))
	h.send(ctx, msg.Chat.ID, codesText(header, issued), nil)
}

func (h *Handler) cmdRandom(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		h.send(ctx, msg.Chat.ID, textRandomUsage, nil)
		return
	}

	durationText := strings.Join(args[1:], " ")
	duration, err := giveaway.ParseDuration(durationText)
	if err != nil {
		h.send(ctx, msg.Chat.ID, textBadDuration, nil)
		return
	}

	g, err := h.giveaways.Create(args[0], duration)
	if err != nil {
		if giveaway.IsUserError(err) {
			h.send(ctx, msg.Chat.ID, userErrorText(err), nil)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to create giveaway")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
		return
	}

	h.sessions.Start(msg.From.ID, Session{State: AwaitingGiveawayPool, GiveawayID: g.ID})
	h.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"✅ Giveaway <b>%s</b> started for %s.\nNow send the accounts.",
		html.EscapeString(dg.DisplayName(g.Name)),
		html.EscapeString(durationText),
	), nil)
}

func (h *Handler) cmdAddAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireOwner(ctx, msg, textOwnersOnly) {
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.send(ctx, msg.Chat.ID, "⚠️ Usage: /addadmin &lt;user_id&gt;", nil)
		return
	}
	id, err := validation.ParseUserID(args[0])
	if err != nil {
		h.send(ctx, msg.Chat.ID, "⚠️ Usage: /addadmin &lt;user_id&gt;", nil)
		return
	}
	h.addAdmin(ctx, msg.Chat.ID, id)
}

func (h *Handler) addAdmin(ctx context.Context, chatID, id int64) {
	switch err := h.admin.AddAdmin(id); {
	case err == nil:
		h.send(ctx, chatID, fmt.Sprintf("✅ User <code>%d</code> has been promoted to admin.", id), nil)
	case errors.Is(err, admin.ErrAlreadyAdmin):
		h.send(ctx, chatID, fmt.Sprintf("⚠️ User <code>%d</code> is already an admin.", id), nil)
	default:
		h.logger.Error().Err(err).Int64("target", id).Msg("Failed to add admin")
		h.send(ctx, chatID, textSomethingFailed, nil)
	}
}

func (h *Handler) cmdBan(ctx context.Context, msg *tgbotapi.Message, ban bool) {
	if !h.requireOwner(ctx, msg, textNotAuthorized) {
		return
	}
	command := "/unban"
	if ban {
		command = "/ban"
	}

	var target int64
	if reply := msg.ReplyToMessage; reply != nil && reply.ForwardFrom != nil {
		target = reply.ForwardFrom.ID
	} else {
		args := strings.Fields(msg.CommandArguments())
		var err error
		if len(args) > 0 {
			target, err = validation.ParseUserID(args[0])
		}
		if len(args) == 0 || err != nil {
			h.send(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ Usage: %s &lt;user_id&gt; or reply to a message.", command), nil)
			return
		}
	}

	var err error
	if ban {
		err = h.admin.Ban(target)
	} else {
		err = h.admin.Unban(target)
	}

	switch {
	case err == nil && ban:
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ User <code>%d</code> has been banned.", target), nil)
	case err == nil:
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ User <code>%d</code> has been unbanned.", target), nil)
	case errors.Is(err, admin.ErrAlreadyBanned):
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ User <code>%d</code> is already banned.", target), nil)
	case errors.Is(err, admin.ErrNotBanned):
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ User <code>%d</code> is not in the ban list.", target), nil)
	default:
		h.logger.Error().Err(err).Int64("target", target).Bool("ban", ban).Msg("Failed to update ban list")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
	}
}

func (h *Handler) cmdTotalUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}
	n, err := h.admin.TotalUsers()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count users")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
		return
	}
	h.send(ctx, msg.Chat.ID, fmt.Sprintf("📊 The Total Users is: %d", n), nil)
}

func (h *Handler) cmdBackup(ctx context.Context, msg *tgbotapi.Message) {
	if !h.admin.IsAdmin(msg.From.ID) {
		h.send(ctx, msg.Chat.ID, "🚫 You are not allowed to use this command.", nil)
		return
	}
	data, err := h.admin.Backup()
	if err == nil {
		err = h.tg.SendBytes(ctx, msg.Chat.ID, "data.json", data, "📂 Here is your latest data.json backup.")
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to send backup")
		h.send(ctx, msg.Chat.ID, "❌ Failed to send backup.", nil)
	}
}

func (h *Handler) cmdClear(ctx context.Context, msg *tgbotapi.Message) {
	if !h.admin.IsAdmin(msg.From.ID) {
		h.send(ctx, msg.Chat.ID, "❌ You are not authorized to use this command.", nil)
		return
	}
	h.send(ctx, msg.Chat.ID, textClearConfirm, clearKeyboard())
}

func (h *Handler) cmdBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireOwner(ctx, msg, textNotAuthorized) {
		return
	}
	h.sessions.Start(msg.From.ID, Session{State: AwaitingBroadcastText})
	h.send(ctx, msg.Chat.ID, "Please send the message you want to broadcast to all users.", nil)
}

func (h *Handler) handleAdminReply(ctx context.Context, msg *tgbotapi.Message) {
	origin := msg.ReplyToMessage.ForwardFrom
	if origin == nil {
		h.send(ctx, msg.Chat.ID, textNotForwarded, nil)
		return
	}
	if err := h.tg.Forward(ctx, origin.ID, msg.Chat.ID, msg.MessageID); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", origin.ID).Msg("Failed to forward admin reply")
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("❌ Failed to send reply to user <code>%d</code>.", origin.ID), nil)
		return
	}
	h.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Sent your reply to user <code>%d</code>.", origin.ID), nil)
}

// handlePlain auto-redeems messages that look like codes and forwards
// anything else from regular users to the admins.
func (h *Handler) handlePlain(ctx context.Context, msg *tgbotapi.Message) {
	id := msg.From.ID
	if h.admin.IsAdmin(id) {
		return
	}
	if !h.admit(ctx, msg.Chat.ID, id, false) {
		return
	}

	if text := strings.TrimSpace(msg.Text); text != "" && codes.LooksLikeCode(text) {
		if ok, wait := h.limits.CheckRedeemCooldown(id); !ok {
			h.throttled(ctx, msg.Chat.ID, id, "redeem", wait)
			return
		}
		h.redeem(ctx, msg, text)
		return
	}

	for _, adminID := range h.admin.Recipients() {
		if err := h.tg.Forward(ctx, adminID, msg.Chat.ID, msg.MessageID); err != nil {
			h.logger.Warn().Err(err).Int64("admin_id", adminID).Msg("Failed to forward message to admin")
		}
	}
}
