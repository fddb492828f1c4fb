package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"stammtischbot/internal/models"
	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/telegram"
)

// handleConversation advances the chat's workflow by one inbound message.
// Validation failures re-emit the current step's prompt without advancing.
func (b *Bot) handleConversation(ctx context.Context, chatID int64, text string, state *ConversationState) {
	if strings.HasPrefix(text, "/cancel") {
		b.store.Delete(chatID)
		b.send(chatID, cancelText)
		return
	}

	if state.Submitted {
		b.send(chatID, alreadySubmittedText)
		return
	}

	switch state.Step {
	case StepTitle:
		state.Draft.Title = strings.TrimSpace(text)
		if state.Draft.Title == "" {
			b.send(chatID, promptTitle)
			return
		}
		state.Step = StepDate
		b.send(chatID, promptDate)

	case StepDate:
		if !validDate(text) {
			b.send(chatID, errBadDate)
			return
		}
		state.Draft.Date = text
		state.Step = StepTime
		b.send(chatID, promptTime)

	case StepTime:
		if !validTime(text) {
			b.send(chatID, errBadTime)
			return
		}
		state.Draft.Time = text
		state.Step = StepLocation
		b.send(chatID, promptLocation)

	case StepLocation:
		b.handleLocationInput(ctx, chatID, text, state)

	case StepLocationConfirm:
		// This step is driven by the inline keyboard; free text re-shows it.
		b.sendLocationConfirm(chatID, state)

	case StepDescription:
		state.Draft.Description = strings.TrimSpace(text)
		if state.Draft.Description == "" {
			b.send(chatID, promptDescription)
			return
		}
		state.Step = StepOptions
		b.sendOptionsMenu(chatID)

	case StepOptions:
		// Options are selected via the inline keyboard; free text re-shows it.
		b.sendOptionsMenu(chatID)

	case StepEndDate:
		if !validDate(text) {
			b.send(chatID, errBadDate)
			return
		}
		state.Draft.EndDate = text
		state.Step = StepEndTime
		b.send(chatID, promptEndTime)

	case StepEndTime:
		if !validTime(text) {
			b.send(chatID, errBadTime)
			return
		}
		state.Draft.EndTime = text
		state.Step = StepOptions
		b.sendOptionsMenu(chatID)

	case StepImage:
		url := strings.TrimSpace(text)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			b.send(chatID, errBadImageURL)
			return
		}
		state.Draft.ImageURL = url
		state.Step = StepOptions
		b.sendOptionsMenu(chatID)

	case StepDeleteTarget:
		b.handleDeleteTargetInput(ctx, chatID, text, state)

	case StepAwaitDecision:
		b.send(chatID, alreadySubmittedText)
	}
}

// handleLocationInput resolves the location via the geocoder. A hit moves to
// the confirmation sub-state; a miss re-prompts the location step.
func (b *Bot) handleLocationInput(ctx context.Context, chatID int64, text string, state *ConversationState) {
	location := strings.TrimSpace(text)
	if location == "" {
		b.send(chatID, promptLocation)
		return
	}

	place, err := b.geocoder.Lookup(ctx, location)

	// The geocoder call suspends; the conversation may have been cancelled
	// meanwhile. A late response finding no matching state is dropped.
	if b.store.Get(chatID) != state {
		return
	}

	if err != nil {
		b.logger.Warn("Geocoder lookup failed", zap.Error(err), zap.Int64("chat_id", chatID))
		b.send(chatID, errLocationMiss)
		return
	}
	if place == nil {
		b.send(chatID, errLocationMiss)
		return
	}

	state.Draft.Location = location
	state.PendingGeoDisplay = place.DisplayName
	state.PendingGeoLat = place.Lat
	state.PendingGeoLon = place.Lon
	state.PendingGeoOSMType = place.OSMType
	state.PendingGeoOSMID = formatOSMID(place.OSMID)
	state.Step = StepLocationConfirm
	b.sendLocationConfirm(chatID, state)
}

// handleDeleteTargetInput resolves the referenced event and hands the
// deletion draft to the approval workflow.
func (b *Bot) handleDeleteTargetInput(ctx context.Context, chatID int64, text string, state *ConversationState) {
	eventID, ok := decodeEventRef(strings.TrimSpace(text))
	if !ok {
		b.send(chatID, errBadEventLink)
		return
	}

	ev := b.resolver.ResolveEvent(ctx, nostr.Filter{IDs: []string{eventID}})
	if b.store.Get(chatID) != state {
		return
	}
	if ev == nil {
		b.send(chatID, errEventMissing)
		return
	}

	state.Draft.Kind = models.DraftDeletion
	state.Draft.TargetEventID = ev.ID
	state.Draft.TargetTitle = ev.TagValue("title")

	b.submitForApproval(ctx, chatID, state, 0)
}

func (b *Bot) sendLocationConfirm(chatID int64, state *ConversationState) {
	b.sendWithKeyboard(chatID, "Meintest du diesen Ort?\n\n📍 "+state.PendingGeoDisplay, [][]telegram.Button{
		{
			{Label: "✅ Ja", Data: "loc:ok"},
			{Label: "❌ Nein, neu eingeben", Data: "loc:retry"},
		},
	})
}

func (b *Bot) sendOptionsMenu(chatID int64) {
	b.sendWithKeyboard(chatID, promptOptions, [][]telegram.Button{
		{
			{Label: "📅 Endzeit angeben", Data: "opt:end"},
			{Label: "🖼 Bild hinzufügen", Data: "opt:image"},
		},
		{
			{Label: "📨 Zur Freigabe senden", Data: "opt:submit"},
		},
	})
}

// validDate accepts zero-padded YYYY-MM-DD only.
func validDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// validTime accepts zero-padded 24h HH:MM only.
func validTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// decodeEventRef accepts nevent1..., note1... or a raw 64-char hex id.
func decodeEventRef(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "nevent1"):
		decoded, err := nip19.DecodeNEvent(s)
		if err != nil {
			return "", false
		}
		return decoded.EventID, true
	case strings.HasPrefix(s, "note1"):
		id, err := nip19.DecodeNote(s)
		if err != nil {
			return "", false
		}
		return id, true
	case len(s) == 64 && isHex(s):
		return strings.ToLower(s), true
	}
	return "", false
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
