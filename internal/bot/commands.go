package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stammtischbot/internal/models"
	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
)

// handleMeetupStart initiates the event-creation conversation.
func (b *Bot) handleMeetupStart(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.store.Put(chatID, &ConversationState{
		Step:      StepTitle,
		Draft:     models.Draft{Kind: models.DraftMeetup},
		CreatedAt: time.Now(),
		UserID:    userID(message),
		Username:  senderUsername(message),
	})
	b.send(chatID, promptTitle)
}

// handleDeleteStart initiates the event-deletion conversation.
func (b *Bot) handleDeleteStart(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.store.Put(chatID, &ConversationState{
		Step:      StepDeleteTarget,
		Draft:     models.Draft{Kind: models.DraftDeletion},
		CreatedAt: time.Now(),
		UserID:    userID(message),
		Username:  senderUsername(message),
	})
	b.send(chatID, promptDeleteLink)
}

// handleMeetupListing resolves the community calendar, filters tombstoned
// events and renders the listing.
func (b *Bot) handleMeetupListing(ctx context.Context, chatID int64) {
	calendar := b.resolver.ResolveCalendar(ctx, b.calendar)

	upcoming := b.upcomingEvents(ctx, calendar)
	b.send(chatID, formatMeetupListing(calendar.Name, upcoming))
}

// handleStatus reports the signing identity and the latest entries of the
// publication audit log. Only the admin chat gets an answer.
func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	var text strings.Builder
	text.WriteString("🤖 Bot-Status\n\n")

	if pubkey := b.publisher.PublicKeyHex(); pubkey == "" {
		text.WriteString("Signatur: kein Schlüssel konfiguriert\n")
	} else if npub, err := nip19.EncodePubkey(pubkey); err == nil {
		text.WriteString("Signatur: " + npub + "\n")
	} else {
		text.WriteString("Signatur: " + pubkey + "\n")
	}

	records, err := b.db.LastPublished(ctx, defaultListingLimit)
	if err != nil {
		b.logger.Warn("Failed to load publication log", zap.Error(err))
		text.WriteString("\nDas Veröffentlichungs-Log ist gerade nicht erreichbar.")
		b.send(chatID, text.String())
		return
	}

	if len(records) == 0 {
		text.WriteString("\nNoch keine Veröffentlichungen.")
	} else {
		text.WriteString("\nLetzte Veröffentlichungen:\n")
		for _, rec := range records {
			title := rec.Title
			if title == "" {
				title = "(ohne Titel)"
			}
			text.WriteString(fmt.Sprintf("• %s – %s (%s)\n",
				rec.PublishedAt.Format("2006-01-02 15:04"), title, nostr.ShortID(rec.EventID)))
		}
	}
	b.send(chatID, text.String())
}

// handleLinks renders the static community link table.
func (b *Bot) handleLinks(chatID int64) {
	var text strings.Builder
	text.WriteString("🔗 Nützliche Links:\n\n")
	for _, link := range communityLinks {
		text.WriteString("• ")
		text.WriteString(link.Label)
		text.WriteString(": ")
		text.WriteString(link.URL)
		text.WriteString("\n")
	}
	b.send(chatID, text.String())
}

func userID(message *tgbotapi.Message) int64 {
	if message.From == nil {
		return 0
	}
	return message.From.ID
}
