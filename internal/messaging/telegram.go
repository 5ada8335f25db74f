// Package messaging provides the chat transport abstraction and its
// Telegram implementation.
package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updateBufferSize bounds the inbound update channel.
const updateBufferSize = 100

// maxFetchSize caps inbound attachment downloads at 20MB, which is also
// the Telegram bot API limit.
const maxFetchSize = 20 << 20

// TelegramService implements Service over the Telegram Bot API using
// long polling.
type TelegramService struct {
	bot     *tgbotapi.BotAPI
	updates chan Update
	done    chan struct{}
}

// NewTelegramService creates a Telegram-backed messaging service.
func NewTelegramService(token string) (*TelegramService, error) {
	if token == "" {
		return nil, fmt.Errorf("Telegram token not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &TelegramService{
		bot:     bot,
		updates: make(chan Update, updateBufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start begins the long-polling loop and translates Telegram updates
// into transport-neutral ones.
func (t *TelegramService) Start(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	raw := t.bot.GetUpdatesChan(cfg)
	go func() {
		defer close(t.updates)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case upd, ok := <-raw:
				if !ok {
					return
				}
				if converted, ok := t.convert(upd); ok {
					t.updates <- converted
				}
			}
		}
	}()
	slog.Debug("Telegram long polling started")
	return nil
}

// convert maps a raw Telegram update to the transport-neutral form.
// Unsupported update kinds are dropped.
func (t *TelegramService) convert(upd tgbotapi.Update) (Update, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		// Acknowledge immediately so the client stops its spinner.
		if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			slog.Warn("Telegram callback ack failed", "error", err)
		}
		if cb.Message == nil {
			return Update{}, false
		}
		return Update{
			ChatID:   cb.Message.Chat.ID,
			UserID:   cb.From.ID,
			Callback: cb.Data,
		}, true
	case upd.Message != nil:
		msg := upd.Message
		out := Update{
			ChatID: msg.Chat.ID,
			UserID: msg.From.ID,
			Text:   msg.Text,
		}
		if msg.Document != nil {
			out.Document = &Document{
				FileID:   msg.Document.FileID,
				FileName: msg.Document.FileName,
				Size:     int64(msg.Document.FileSize),
			}
		}
		if out.Text == "" && out.Document == nil {
			return Update{}, false
		}
		return out, true
	default:
		return Update{}, false
	}
}

// Stop stops the polling loop.
func (t *TelegramService) Stop() error {
	close(t.done)
	t.bot.StopReceivingUpdates()
	slog.Debug("Telegram long polling stopped")
	return nil
}

// Updates returns the channel of incoming updates.
func (t *TelegramService) Updates() <-chan Update {
	return t.updates
}

// SendMessage sends a plain-text message to a chat.
func (t *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Telegram SendMessage failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// SendReplyKeyboard sends a message with a custom reply keyboard.
func (t *TelegramService) SendReplyKeyboard(ctx context.Context, chatID int64, text string, keyboard ReplyKeyboard) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	msg.ReplyMarkup = markup
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Telegram SendReplyKeyboard failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send keyboard to %d: %w", chatID, err)
	}
	return nil
}

// SendInlineKeyboard sends a message with inline buttons.
func (t *TelegramService) SendInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard InlineKeyboard) error {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Telegram SendInlineKeyboard failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send inline keyboard to %d: %w", chatID, err)
	}
	return nil
}

// SendDocumentURL sends a document to a chat by remote URL.
func (t *TelegramService) SendDocumentURL(ctx context.Context, chatID int64, name, url string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileURL(url))
	if _, err := t.bot.Send(doc); err != nil {
		slog.Error("Telegram SendDocumentURL failed", "error", err, "chatID", chatID, "name", name)
		return fmt.Errorf("failed to send document %s to %d: %w", name, chatID, err)
	}
	return nil
}

// FetchDocument downloads the content of an inbound attachment.
func (t *TelegramService) FetchDocument(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if len(content) > maxFetchSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxFetchSize)
	}
	return content, nil
}
