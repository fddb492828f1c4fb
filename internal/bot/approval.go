package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stammtischbot/internal/models"
	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/telegram"
)

// submitForApproval moves a fully-collected draft into the admin review
// queue. The submitted flag is set before any asynchronous work so a second
// rapid tap cannot pass the precondition check. submitterMessageID, when
// non-zero, is the options-menu message whose controls get replaced with a
// confirmation.
func (b *Bot) submitForApproval(ctx context.Context, chatID int64, state *ConversationState, submitterMessageID int) {
	if state.Submitted {
		b.send(chatID, alreadySubmittedText)
		return
	}
	state.Submitted = true
	state.Step = StepAwaitDecision

	summary := formatDraftSummary(&state.Draft, state.Username)
	keyboard := [][]telegram.Button{
		{
			{Label: "✅ Freigeben", Data: fmt.Sprintf("approve:%d", chatID)},
			{Label: "❌ Ablehnen", Data: fmt.Sprintf("reject:%d", chatID)},
		},
	}

	adminMessageID, err := b.gateway.SendMessage(b.adminChatID, summary, telegram.SendOptions{Keyboard: keyboard})
	if err != nil {
		b.logger.Error("Failed to send approval request",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		// Roll back so the user can retry.
		state.Submitted = false
		state.Step = StepOptions
		b.send(chatID, publishFailedText)
		return
	}
	state.AdminMessageID = adminMessageID

	confirmation := submittedText
	if state.Draft.Kind == models.DraftDeletion {
		confirmation = deleteSubmittedText
	}
	if submitterMessageID != 0 {
		if err := b.gateway.EditMessageText(chatID, submitterMessageID, confirmation, telegram.SendOptions{}); err != nil {
			b.send(chatID, confirmation)
		}
	} else {
		b.send(chatID, confirmation)
	}

	b.logger.Info("Draft submitted for approval",
		zap.Int64("chat_id", chatID),
		zap.String("title", state.Draft.Title),
	)
}

// resolveApproval applies an admin decision. A decision on an already-decided
// request is answered with a no-op acknowledgement: the Decided flag is set
// before any asynchronous work, and the state is deleted afterwards, so both
// the fast and the slow duplicate land here harmlessly.
func (b *Bot) resolveApproval(ctx context.Context, chatID int64, approve bool, query *tgbotapi.CallbackQuery) {
	state := b.store.Get(chatID)
	if state == nil || !state.Submitted || state.Decided {
		b.answerCallback(query.ID, alreadyDecidedText)
		return
	}
	state.Decided = true
	b.answerCallback(query.ID, "")

	workflow := "meetup"
	if state.Draft.Kind == models.DraftDeletion {
		workflow = "deletion"
	}
	decision := "rejected"
	if approve {
		decision = "approved"
	}

	if approve {
		b.applyApproval(ctx, chatID, state)
	} else {
		b.send(chatID, rejectedText)
	}

	b.finishAdminMessage(query, &state.Draft, approve)
	b.store.Delete(chatID)

	if err := b.db.RecordApproval(ctx, models.ApprovalRecord{
		ChatID:    chatID,
		Workflow:  workflow,
		Decision:  decision,
		DecidedAt: time.Now(),
	}); err != nil {
		b.logger.Warn("Failed to record approval", zap.Error(err))
	}
}

// applyApproval runs the publish pipeline for an approved draft and notifies
// the submitter. Publish failure keeps the approved status; the user is told
// to contact an administrator, there is no automatic retry.
func (b *Bot) applyApproval(ctx context.Context, chatID int64, state *ConversationState) {
	event, results, err := b.publisher.PublishDraft(ctx, &state.Draft)
	if err != nil {
		b.logger.Error("Publish failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		b.send(chatID, publishFailedText)
		return
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	b.logger.Info("Event published",
		zap.String("event_id", nostr.ShortID(event.ID)),
		zap.Int("relays", len(results)),
		zap.Int("failed", failed),
	)

	if err := b.db.RecordPublishedEvent(ctx, models.PublishedRecord{
		EventID:     event.ID,
		Kind:        event.Kind,
		Title:       state.Draft.Title,
		ChatID:      chatID,
		PublishedAt: time.Now(),
	}); err != nil {
		b.logger.Warn("Failed to record published event", zap.Error(err))
	}

	if state.Draft.Kind == models.DraftDeletion {
		b.send(chatID, deleteApprovedText)
		return
	}
	b.send(chatID, fmt.Sprintf(approvedText, publicLink(event)))
}

// finishAdminMessage edits the admin control message into its terminal state
// so the controls disappear and the decision is visible in the channel.
func (b *Bot) finishAdminMessage(query *tgbotapi.CallbackQuery, draft *models.Draft, approved bool) {
	verdict := "❌ Abgelehnt"
	if approved {
		verdict = "✅ Freigegeben"
	}
	text := fmt.Sprintf("%s\n\n%s", verdict, formatDraftSummary(draft, ""))
	if err := b.gateway.EditMessageText(query.Message.Chat.ID, query.Message.MessageID, text, telegram.SendOptions{}); err != nil {
		b.logger.Warn("Failed to edit admin message", zap.Error(err))
	}
}

// publicLink renders a shareable identifier for a freshly published event:
// the naddr coordinate for meetups, nevent otherwise.
func publicLink(event *nostr.Event) string {
	if event.Kind == nostr.KindCalendarEvent && event.Identifier() != "" {
		if addr, err := nip19.EncodeNAddr(uint32(event.Kind), event.PubKey, event.Identifier()); err == nil {
			return addr
		}
	}
	if link, err := nip19.EncodeNEvent(event.ID, event.PubKey); err == nil {
		return link
	}
	return event.ID
}
