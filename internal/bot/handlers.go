package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stammtischbot/internal/telegram"
)

// HandleUpdate processes a single Telegram update from polling or webhook.
// Updates touching the same conversation are handled one at a time.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	if update.Message != nil {
		unlock := b.lockChat(update.Message.Chat.ID)
		b.handleMessage(ctx, update.Message)
		unlock()
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		unlock := b.lockChat(conversationOwner(update.CallbackQuery))
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		unlock()
	}
}

// lockChat takes the per-chat mutex and returns its release.
func (b *Bot) lockChat(chatID int64) func() {
	entry, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := entry.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// conversationOwner is the chat whose conversation state the callback
// mutates: the submitter chat for admin decisions, the clicking chat for
// everything else.
func conversationOwner(query *tgbotapi.CallbackQuery) int64 {
	if cmd := parseCallback(query.Data); cmd.chatID != 0 {
		return cmd.chatID
	}
	return query.Message.Chat.ID
}

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.send(message.Chat.ID, "Da ist etwas schiefgelaufen. Bitte versuche es noch einmal.")
		}
	}()

	if len(message.NewChatMembers) > 0 {
		b.send(message.Chat.ID, welcomeText)
		return
	}

	chatID := message.Chat.ID

	// Check if the chat is in a conversation
	if state := b.store.Get(chatID); state != nil {
		if message.IsCommand() && message.Command() != "cancel" {
			// Any other command interrupts and cancels the ongoing conversation.
			b.store.Delete(chatID)
		} else {
			b.handleConversation(ctx, chatID, message.Text, state)
			return
		}
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start", "hilfe", "help":
			b.send(chatID, helpText)
		case "meetup":
			b.handleMeetupStart(message)
		case "meetup_delete":
			b.handleDeleteStart(message)
		case "meetups":
			b.handleMeetupListing(ctx, chatID)
		case "links":
			b.handleLinks(chatID)
		case "status":
			if chatID == b.adminChatID {
				b.handleStatus(ctx, chatID)
			} else if message.Chat.IsPrivate() {
				b.send(chatID, unknownCommandText)
			}
		case "cancel":
			b.send(chatID, nothingToCancelText)
		default:
			if message.Chat.IsPrivate() {
				b.send(chatID, unknownCommandText)
			}
		}
		return
	}

	// Plain group chatter goes through moderation.
	if !message.Chat.IsPrivate() && message.Text != "" {
		b.moderateMessage(ctx, message)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.gateway.SendMessage(chatID, text, telegram.SendOptions{}); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard [][]telegram.Button) {
	if _, err := b.gateway.SendMessage(chatID, text, telegram.SendOptions{Keyboard: keyboard}); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if callbackID == "" {
		return
	}
	b.gateway.AnswerCallbackQuery(callbackID, text)
}

func senderUsername(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	if message.From.UserName != "" {
		return "@" + message.From.UserName
	}
	return strings.TrimSpace(message.From.FirstName + " " + message.From.LastName)
}
