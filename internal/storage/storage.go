package storage

import (
	"context"

	"stammtischbot/internal/models"
)

// Storage is the append-only audit trail for operational events: what the bot
// published, which admin decisions were taken, and moderation actions in the
// group chat. Conversation state is deliberately not stored here; it is
// memory-resident by design.
type Storage interface {
	RecordPublishedEvent(ctx context.Context, rec models.PublishedRecord) error
	RecordApproval(ctx context.Context, rec models.ApprovalRecord) error
	RecordModerationAction(ctx context.Context, rec models.ModerationRecord) error

	// LastPublished returns the most recent published-event records, newest first.
	LastPublished(ctx context.Context, limit int) ([]models.PublishedRecord, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
