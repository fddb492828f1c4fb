package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stammtischbot/internal/models"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/relay"
)

// formatDraftSummary renders a draft as the human-readable review text shown
// in the admin channel.
func formatDraftSummary(draft *models.Draft, submitter string) string {
	var text strings.Builder

	if draft.Kind == models.DraftDeletion {
		text.WriteString("🗑 Löschantrag\n\n")
		if draft.TargetTitle != "" {
			text.WriteString(fmt.Sprintf("Meetup: %s\n", draft.TargetTitle))
		}
		text.WriteString(fmt.Sprintf("Event-ID: %s\n", draft.TargetEventID))
	} else {
		text.WriteString("📨 Neues Meetup\n\n")
		text.WriteString(fmt.Sprintf("Titel: %s\n", draft.Title))
		text.WriteString(fmt.Sprintf("Datum: %s\n", draft.Date))
		text.WriteString(fmt.Sprintf("Uhrzeit: %s\n", draft.Time))
		location := draft.GeoDisplay
		if location == "" {
			location = draft.Location
		}
		text.WriteString(fmt.Sprintf("Ort: %s\n", location))
		text.WriteString(fmt.Sprintf("Beschreibung: %s\n", draft.Description))
		if draft.EndDate != "" {
			text.WriteString(fmt.Sprintf("Ende: %s %s\n", draft.EndDate, draft.EndTime))
		}
		if draft.ImageURL != "" {
			text.WriteString(fmt.Sprintf("Bild: %s\n", draft.ImageURL))
		}
	}

	if submitter != "" {
		text.WriteString(fmt.Sprintf("\nEingereicht von: %s", submitter))
	}
	return text.String()
}

// upcomingEvents filters the calendar's events through the tombstone check
// and sorts them by start time.
func (b *Bot) upcomingEvents(ctx context.Context, calendar relay.Calendar) []nostr.Event {
	var events []nostr.Event
	for _, ev := range calendar.Events {
		if b.resolver.IsDeleted(ctx, ev.ID) {
			continue
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return eventStart(&events[i]) < eventStart(&events[j])
	})
	return events
}

// formatMeetupListing renders the chronological event listing.
func formatMeetupListing(calendarName string, events []nostr.Event) string {
	if len(events) == 0 {
		return "Zurzeit sind keine Meetups geplant. Mit /meetup kannst du eines vorschlagen!"
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("📅 %s\n\n", calendarName))
	for _, ev := range events {
		title := ev.TagValue("title")
		if title == "" {
			title = "(ohne Titel)"
		}
		text.WriteString(fmt.Sprintf("• %s", title))
		if start := eventStart(&ev); start > 0 {
			text.WriteString(fmt.Sprintf(" — %s", time.Unix(start, 0).Format("02.01.2006 15:04")))
		}
		if location := ev.TagValue("location"); location != "" {
			text.WriteString(fmt.Sprintf("\n  📍 %s", location))
		}
		text.WriteString("\n")
	}
	return text.String()
}

func eventStart(ev *nostr.Event) int64 {
	start, err := strconv.ParseInt(ev.TagValue("start"), 10, 64)
	if err != nil {
		return 0
	}
	return start
}

func formatOSMID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
