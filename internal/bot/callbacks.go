package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	answered := false
	answer := func(text string, alert bool) {
		answered = true
		if err := h.tg.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
			h.logger.Warn().Err(err).Str("data", cb.Data).Msg("Failed to answer callback")
		}
	}
	defer func() {
		if !answered {
			answer("", false)
		}
	}()

	id := cb.From.ID
	if h.admin.IsBanned(id) {
		answer("You are banned.", true)
		return
	}
	if cb.Message != nil && !h.channelsJoined(ctx, cb.Message.Chat.ID, id) {
		return
	}

	switch data := cb.Data; {
	case data == cbRedeemCode:
		available, err := h.engine.Availability(ctx)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to check code availability")
			answer(textSomethingFailed, true)
			return
		}
		text := textRedeemMenuEmpty
		if available {
			text = textRedeemMenuOpen
		}
		h.edit(ctx, cb.Message, text, backKeyboard())

	case data == cbAddNewAdmin:
		if !h.admin.IsOwner(id) {
			answer("❌ Owners only.", true)
			return
		}
		h.sessions.Start(id, Session{State: AwaitingNewAdminID})
		if cb.Message != nil {
			h.send(ctx, cb.Message.Chat.ID, "👤 Please send the User ID of the new admin.", nil)
		}

	case data == cbBackToMenu:
		h.edit(ctx, cb.Message, textWelcome, mainMenu(h.admin.IsAdmin(id), h.admin.IsOwner(id)))

	case data == cbJoinGiveaways:
		active, err := h.giveaways.Active()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list giveaways")
			answer(textSomethingFailed, true)
			return
		}
		if len(active) == 0 {
			h.edit(ctx, cb.Message, textNoActive, backKeyboard())
			return
		}
		h.edit(ctx, cb.Message, textChooseGiveaway, giveawaysKeyboard(active))

	case data == cbCheckStatus || data == cbViewStatus:
		active, err := h.giveaways.Active()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list giveaways")
			answer(textSomethingFailed, true)
			return
		}
		if len(active) == 0 {
			h.edit(ctx, cb.Message, textNoActive, backKeyboard())
			return
		}
		h.edit(ctx, cb.Message, statusText(active, h.now()), backKeyboard())

	case data == cbShowGuide:
		h.edit(ctx, cb.Message, guideText(h.opts.SupportContacts), backKeyboard())

	case data == cbAdminGuide:
		if h.admin.IsAdmin(id) {
			answer("Please use the /cmd command for a full list.", true)
		}

	case data == cbConfirmClear:
		h.confirmClear(ctx, cb, answer)

	case strings.HasPrefix(data, cbJoinPrefix):
		h.joinGiveaway(ctx, cb, strings.TrimPrefix(data, cbJoinPrefix), answer)

	default:
		h.logger.Debug().Str("data", data).Msg("Unknown callback")
	}
}

func (h *Handler) joinGiveaway(ctx context.Context, cb *tgbotapi.CallbackQuery, name string, answer func(string, bool)) {
	res, g, err := h.giveaways.Join(name, refOf(cb.From))
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		answer("❌ This giveaway doesn't exist or has ended.", true)
	case err != nil:
		h.logger.Error().Err(err).Str("name", name).Int64("user_id", cb.From.ID).Msg("Failed to join giveaway")
		answer(textSomethingFailed, true)
	case res == giveaway.AlreadyJoined:
		answer("❗ You've already joined this giveaway!", true)
	default:
		h.logger.Info().Str("giveaway_id", g.ID).Int64("user_id", cb.From.ID).Msg("User joined giveaway")
		answer(fmt.Sprintf("✅ You have successfully joined the %s giveaway!", dg.DisplayName(g.Name)), true)
	}
}

func (h *Handler) confirmClear(ctx context.Context, cb *tgbotapi.CallbackQuery, answer func(string, bool)) {
	if !h.admin.IsAdmin(cb.From.ID) {
		answer("You are not authorized.", true)
		return
	}

	res, err := h.admin.Clear()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear data")
		answer("❌ Clear failed.", true)
		return
	}

	if err := h.tg.SendBytes(ctx, cb.From.ID, "data_backup.json", res.Backup, "📦 Here is the backup before clearing."); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", cb.From.ID).Msg("Failed to send pre-clear backup")
	}
	h.edit(ctx, cb.Message, "✅ Data cleared.", nil)
	answer("Database cleared successfully ✅", false)
}
