package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
)

const (
	pollTimeoutSeconds = 60
	downloadTimeout    = 30 * time.Second
	maxDownloadSize    = 20 << 20
)

// RPSError is returned when Telegram answers 429 Too Many Requests.
type RPSError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RPSError) Error() string {
	return e.Msg
}

// Client is the bot's only gateway to the Telegram Bot API.
type Client struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient authorizes token against the Bot API.
func NewClient(token string, debug bool, logger zerolog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("getMe", err)
	}
	api.Debug = debug

	c := &Client{
		api: api,
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		logger: logger.With().Str("component", "telegram").Logger(),
	}
	c.logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")
	return c, nil
}

// Username returns the bot's own username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Updates starts long polling. The channel is closed after ctx is done.
func (c *Client) Updates(ctx context.Context) <-chan tgbotapi.Update {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}

	in := c.api.GetUpdatesChan(u)
	out := make(chan tgbotapi.Update)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				c.api.StopReceivingUpdates()
				return
			case update, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- update:
				case <-ctx.Done():
					c.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()

	return out
}

// SendMessage sends HTML text with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup := kb.markup(); markup != nil {
		msg.ReplyMarkup = *markup
	}

	if _, err := c.api.Send(msg); err != nil {
		return c.wrap("sendMessage", err)
	}
	return nil
}

// EditMessage replaces the text and keyboard of a message the bot sent.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = kb.markup()

	if _, err := c.api.Send(edit); err != nil {
		return c.wrap("editMessageText", err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query, optionally as an alert.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		return c.wrap("answerCallbackQuery", err)
	}
	return nil
}

// SendFile uploads a local file as a document.
func (c *Client) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(doc); err != nil {
		return c.wrap("sendDocument", err)
	}
	return nil
}

// SendBytes uploads in-memory data as a named document.
func (c *Client) SendBytes(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(doc); err != nil {
		return c.wrap("sendDocument", err)
	}
	return nil
}

// Forward copies a message into another chat with attribution.
func (c *Client) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID)); err != nil {
		return c.wrap("forwardMessage", err)
	}
	return nil
}

// IsMember reports whether userID is a member, administrator or creator of chatID.
func (c *Client) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, c.wrap("getChatMember", err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	default:
		return false, nil
	}
}

// InviteLink exports the primary invite link of chatID.
func (c *Client) InviteLink(ctx context.Context, chatID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	link, err := c.api.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", c.wrap("exportChatInviteLink", err)
	}
	return link, nil
}

// Download fetches the content of an uploaded file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, c.wrap("getFile", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewTelegramAPIError("download", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download", err)
	}
	if len(data) > maxDownloadSize {
		return nil, apperrors.NewTelegramAPIError("download", fmt.Errorf("file exceeds %d bytes", maxDownloadSize))
	}
	return data, nil
}

// ApproveJoinRequest accepts a pending chat join request.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	if err != nil {
		return c.wrap("approveChatJoinRequest", err)
	}
	return nil
}

func (c *Client) wrap(op string, err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == http.StatusTooManyRequests {
		retry := time.Duration(tgErr.RetryAfter) * time.Second
		c.logger.Warn().Str("op", op).Dur("retry_after", retry).Msg("Telegram rate limit hit")
		return apperrors.NewTelegramAPIError(op, &RPSError{Msg: "too many requests", RetryAfter: retry})
	}
	return apperrors.NewTelegramAPIError(op, err)
}
