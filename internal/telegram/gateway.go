// Package telegram wraps the chat transport behind a narrow gateway so the
// bot logic can be driven by a recording fake in tests.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Button is one labeled inline-keyboard action with an opaque callback payload.
type Button struct {
	Label string
	Data  string
}

// SendOptions carries the optional message parameters the bot uses.
type SendOptions struct {
	Markdown bool
	Keyboard [][]Button
}

// Gateway is the messaging surface the bot consumes.
type Gateway interface {
	// SendMessage sends text to a chat and returns the new message id.
	SendMessage(chatID int64, text string, opts SendOptions) (int, error)
	EditMessageText(chatID int64, messageID int, text string, opts SendOptions) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallbackQuery(callbackID string, text string) error
}

// BotAPI is the tgbotapi-backed Gateway.
type BotAPI struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New creates the Telegram gateway and verifies the token against the API.
func New(token string, logger *zap.Logger) (*BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))
	return &BotAPI{api: api, logger: logger}, nil
}

// API exposes the underlying client for the update loop.
func (g *BotAPI) API() *tgbotapi.BotAPI {
	return g.api
}

func (g *BotAPI) SendMessage(chatID int64, text string, opts SendOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	applyOptions(&msg.ParseMode, &msg.ReplyMarkup, opts)

	sent, err := g.api.Send(msg)
	if err != nil {
		g.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *BotAPI) EditMessageText(chatID int64, messageID int, text string, opts SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if opts.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(opts.Keyboard) > 0 {
		markup := buildMarkup(opts.Keyboard)
		edit.ReplyMarkup = &markup
	}

	if _, err := g.api.Send(edit); err != nil {
		g.logger.Error("Failed to edit message", zap.Error(err),
			zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
		return err
	}
	return nil
}

func (g *BotAPI) DeleteMessage(chatID int64, messageID int) error {
	if _, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		g.logger.Error("Failed to delete message", zap.Error(err),
			zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
		return err
	}
	return nil
}

func (g *BotAPI) AnswerCallbackQuery(callbackID string, text string) error {
	if _, err := g.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		g.logger.Warn("Failed to answer callback query", zap.Error(err))
		return err
	}
	return nil
}

func applyOptions(parseMode *string, replyMarkup *interface{}, opts SendOptions) {
	if opts.Markdown {
		*parseMode = tgbotapi.ModeMarkdown
	}
	if len(opts.Keyboard) > 0 {
		*replyMarkup = buildMarkup(opts.Keyboard)
	}
}

func buildMarkup(keyboard [][]Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range keyboard {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
