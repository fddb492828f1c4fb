package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"stammtischbot/internal/geocoder"
	"stammtischbot/internal/models"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/relay"
	"stammtischbot/internal/storage"
	"stammtischbot/internal/telegram"
)

// sweepInterval and maxConversationAge bound the memory held by abandoned
// conversations.
const (
	sweepInterval       = time.Hour
	maxConversationAge  = 24 * time.Hour
	defaultListingLimit = 10
)

// EventResolver is the read side of the relay layer the bot consumes.
type EventResolver interface {
	ResolveEvent(ctx context.Context, filter nostr.Filter) *nostr.Event
	ResolveCalendar(ctx context.Context, calendarAddr string) relay.Calendar
	IsDeleted(ctx context.Context, eventID string) bool
}

// EventPublisher is the write side: sign, broadcast, calendar append.
type EventPublisher interface {
	PublishDraft(ctx context.Context, draft *models.Draft) (*nostr.Event, []relay.Result, error)
	PublicKeyHex() string
}

// Geocoder resolves free-text locations.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (*geocoder.Place, error)
}

// Bot wires the Telegram update stream to the conversation state machine,
// the approval workflow and the relay layer.
type Bot struct {
	gateway     telegram.Gateway
	resolver    EventResolver
	publisher   EventPublisher
	geocoder    Geocoder
	store       ConversationStore
	db          storage.Storage
	adminChatID int64
	calendar    string
	logger      *zap.Logger

	// chatLocks serializes update handling per conversation owner. Webhook
	// delivery runs a goroutine per update; ConversationState fields are
	// unlocked and rely on a single writer per chat.
	chatLocks sync.Map
}

// New creates a Bot. adminChatID is the review channel for event requests;
// calendarAddr is the naddr of the community calendar.
func New(gateway telegram.Gateway, resolver EventResolver, publisher EventPublisher, geo Geocoder, db storage.Storage, adminChatID int64, calendarAddr string, logger *zap.Logger) *Bot {
	return &Bot{
		gateway:     gateway,
		resolver:    resolver,
		publisher:   publisher,
		geocoder:    geo,
		store:       NewMemoryStore(),
		db:          db,
		adminChatID: adminChatID,
		calendar:    calendarAddr,
		logger:      logger,
	}
}

// RunSweeper garbage-collects abandoned conversations until ctx is done.
func (b *Bot) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := b.store.Sweep(maxConversationAge); removed > 0 {
				b.logger.Info("Swept stale conversations", zap.Int("removed", removed))
			}
		}
	}
}
