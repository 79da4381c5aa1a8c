package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/open-builders/reward-rush-bot/internal/common/validation"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
)

const textPlainMIME = "text/plain"

// handleSessionInput feeds a non-command message to the pending session.
func (h *Handler) handleSessionInput(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	switch sess.State {
	case AwaitingAccountList:
		h.inputAccounts(ctx, msg, sess)
	case AwaitingFileUploads:
		h.inputFile(ctx, msg)
	case AwaitingBroadcastText:
		h.inputBroadcast(ctx, msg)
	case AwaitingNewAdminID:
		h.inputNewAdmin(ctx, msg)
	case AwaitingGiveawayPool:
		h.inputGiveawayPool(ctx, msg, sess)
	default:
		h.sessions.End(msg.From.ID)
		h.handlePlain(ctx, msg)
	}
}

func (h *Handler) inputAccounts(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	h.sessions.End(msg.From.ID)

	accounts := validation.SplitLines(msg.Text)
	if len(accounts) == 0 {
		h.send(ctx, msg.Chat.ID, "No valid accounts found.", nil)
		return
	}

	issued, err := h.engine.Issue(ctx, sess.Prefix, reward.TypeInlineValue, accounts)
	if err != nil {
		text, userFault := issueFailureText(err)
		if !userFault {
			h.logger.Error().Err(err).Int("accounts", len(accounts)).Msg("Failed to issue account codes")
		}
		h.send(ctx, msg.Chat.ID, text, nil)
		return
	}
	h.send(ctx, msg.Chat.ID, codesText("The redeem codes are:", issued), nil)
}

func (h *Handler) inputFile(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if doc == nil || doc.MimeType != textPlainMIME {
		h.send(ctx, msg.Chat.ID, "That's not a text file. Please upload a <code>.txt</code> file.", nil)
		return
	}

	data, err := h.tg.Download(ctx, doc.FileID)
	if err != nil {
		h.logger.Warn().Err(err).Str("file_id", doc.FileID).Msg("Failed to download upload")
		h.send(ctx, msg.Chat.ID, "❌ An error occurred while saving the file. Please try again.", nil)
		return
	}

	name := doc.FileName
	if filepath.Ext(name) == "" {
		name += ".txt"
	}
	path, err := h.files.Save(name, data)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to store upload")
		h.send(ctx, msg.Chat.ID, "❌ An error occurred while saving the file. Please try again.", nil)
		return
	}

	var count int
	live := h.sessions.Touch(msg.From.ID, func(s *Session) {
		s.Files = append(s.Files, path)
		count = len(s.Files)
	})
	if !live {
		// The session expired while the file was downloading.
		if err := h.files.Remove(path); err != nil {
			h.logger.Warn().Err(err).Int64("user_id", msg.From.ID).Str("path", path).Msg("Failed to remove upload of expired session")
		}
		h.send(ctx, msg.Chat.ID, "⌛ Upload session expired. Start again with /addfile.", nil)
		return
	}
	h.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ File #%d received. Upload more or send /done.", count), nil)
}

func (h *Handler) inputBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		h.send(ctx, msg.Chat.ID, "Please send a text message to broadcast.", nil)
		return
	}
	h.sessions.End(msg.From.ID)

	users, err := h.admin.Users()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load users for broadcast")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
		return
	}

	tally := h.notifier.Broadcast(ctx, msg.Text, users)
	h.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"✅ Broadcast completed!\n\n📊 Statistics:\nTotal Users: %d\nActive Users (received): %d\nBanned or Unreachable Users: %d",
		tally.Total, tally.Delivered, tally.Failed,
	), nil)
}

func (h *Handler) inputNewAdmin(ctx context.Context, msg *tgbotapi.Message) {
	h.sessions.End(msg.From.ID)

	id, err := validation.ParseUserID(msg.Text)
	if err != nil {
		h.send(ctx, msg.Chat.ID, textInvalidAdminID, nil)
		return
	}
	h.addAdmin(ctx, msg.Chat.ID, id)
}

func (h *Handler) inputGiveawayPool(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	if msg.Text == "" {
		h.send(ctx, msg.Chat.ID, "No accounts provided.", nil)
		return
	}
	pool := validation.SplitLines(msg.Text)
	if len(pool) == 0 {
		h.send(ctx, msg.Chat.ID, "No valid accounts found.", nil)
		return
	}

	g, err := h.giveaways.Populate(sess.GiveawayID, pool)
	switch {
	case err == nil:
		h.sessions.End(msg.From.ID)
		h.send(ctx, msg.Chat.ID, fmt.Sprintf(
			"✅ Added %d account(s).\n⏳ Winners will be selected in %d seconds.",
			len(pool), g.Duration,
		), nil)
	case errors.Is(err, giveaway.ErrNotFound):
		h.sessions.End(msg.From.ID)
		h.send(ctx, msg.Chat.ID, textGiveawayGone, nil)
	default:
		h.logger.Error().Err(err).Str("giveaway_id", sess.GiveawayID).Msg("Failed to populate giveaway")
		h.send(ctx, msg.Chat.ID, textSomethingFailed, nil)
	}
}
