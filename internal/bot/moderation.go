package bot

import (
	"context"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stammtischbot/internal/models"
)

// moderateMessage applies the group-chat content rules: tracking parameters
// are stripped from shared URLs, and off-topic coin banter gets a canned
// reply. Actions are recorded in the audit store.
func (b *Bot) moderateMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if cleaned, dirty := cleanTrackingURLs(message.Text); dirty {
		b.send(chatID, "🧹 Link ohne Tracking:\n"+cleaned)
		b.recordModeration(ctx, chatID, "url_cleaned", cleaned)
		return
	}

	if term, ok := matchOfftopic(message.Text); ok {
		b.send(chatID, offtopicReply)
		b.recordModeration(ctx, chatID, "offtopic_reply", term)
	}
}

func (b *Bot) recordModeration(ctx context.Context, chatID int64, action, detail string) {
	if err := b.db.RecordModerationAction(ctx, models.ModerationRecord{
		ChatID:   chatID,
		Action:   action,
		Detail:   detail,
		ActionAt: time.Now(),
	}); err != nil {
		b.logger.Warn("Failed to record moderation action", zap.Error(err))
	}
}

// cleanTrackingURLs strips known tracking query parameters from every URL in
// the text. It returns the cleaned URLs joined by newlines and whether any
// URL actually changed.
func cleanTrackingURLs(text string) (string, bool) {
	var cleaned []string
	dirty := false

	for _, word := range strings.Fields(text) {
		if !strings.HasPrefix(word, "http://") && !strings.HasPrefix(word, "https://") {
			continue
		}
		parsed, err := url.Parse(word)
		if err != nil {
			continue
		}

		query := parsed.Query()
		changed := false
		for _, param := range trackingParams {
			if query.Has(param) {
				query.Del(param)
				changed = true
			}
		}
		if !changed {
			continue
		}

		parsed.RawQuery = query.Encode()
		cleaned = append(cleaned, parsed.String())
		dirty = true
	}

	return strings.Join(cleaned, "\n"), dirty
}

// matchOfftopic reports the first off-topic term found in the text.
func matchOfftopic(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range offtopicTerms {
		if containsWord(lower, term) {
			return term, true
		}
	}
	return "", false
}

// containsWord is a word-boundary match without regex.
func containsWord(text, word string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], word)
		if pos == -1 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
