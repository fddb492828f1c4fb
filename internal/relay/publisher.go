package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"go.uber.org/zap"

	"stammtischbot/internal/models"
	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
)

// Result is the outcome of the publish attempt against one relay. The
// broadcast is best-effort: callers get the per-relay detail instead of a
// collapsed void.
type Result struct {
	Relay string
	Err   error
}

// Publisher signs drafts and fans them out to every configured relay. New
// meetups additionally get appended to the parent calendar document via
// read-modify-write.
type Publisher struct {
	transport Transport
	resolver  *Resolver
	relays    []string
	priv      *btcec.PrivateKey
	calendar  string // naddr or coordinate of the parent calendar
	location  *time.Location
	logger    *zap.Logger
}

// NewPublisher creates the publish pipeline. priv may be nil when no signing
// key is configured; publishing then fails with a surfaced error.
func NewPublisher(transport Transport, resolver *Resolver, relays []string, priv *btcec.PrivateKey, calendarAddr string, location *time.Location, logger *zap.Logger) *Publisher {
	if location == nil {
		location = time.UTC
	}
	return &Publisher{
		transport: transport,
		resolver:  resolver,
		relays:    relays,
		priv:      priv,
		calendar:  calendarAddr,
		location:  location,
		logger:    logger,
	}
}

// PublishDraft validates, signs and broadcasts the draft. For meetup drafts
// the parent calendar is updated afterwards; a calendar failure only degrades
// discoverability and is not surfaced as an error.
func (p *Publisher) PublishDraft(ctx context.Context, draft *models.Draft) (*nostr.Event, []Result, error) {
	if p.priv == nil {
		return nil, nil, fmt.Errorf("no signing key configured")
	}

	var event *nostr.Event
	var err error
	switch draft.Kind {
	case models.DraftDeletion:
		event, err = p.buildDeletionEvent(draft)
	default:
		event, err = p.buildMeetupEvent(draft)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := event.Sign(p.priv); err != nil {
		return nil, nil, err
	}

	results := p.fanOut(ctx, event)

	if draft.Kind == models.DraftMeetup {
		p.appendToCalendar(ctx, event)
	}

	return event, results, nil
}

// buildMeetupEvent constructs the unsigned kind-31923 template with a
// deterministic tag list from the draft fields.
func (p *Publisher) buildMeetupEvent(draft *models.Draft) (*nostr.Event, error) {
	if draft.Title == "" || draft.Date == "" || draft.Time == "" || draft.Location == "" {
		return nil, fmt.Errorf("draft is missing required fields")
	}

	start, err := p.parseLocalTime(draft.Date, draft.Time)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}

	identifier := makeIdentifier(draft.Title)
	tags := [][]string{
		{"d", identifier},
		{"title", draft.Title},
		{"start", fmt.Sprintf("%d", start.Unix())},
	}

	if draft.EndDate != "" && draft.EndTime != "" {
		end, err := p.parseLocalTime(draft.EndDate, draft.EndTime)
		if err != nil {
			return nil, fmt.Errorf("invalid end: %w", err)
		}
		tags = append(tags, []string{"end", fmt.Sprintf("%d", end.Unix())})
	}

	location := draft.GeoDisplay
	if location == "" {
		location = draft.Location
	}
	tags = append(tags, []string{"location", location})

	if draft.GeoOSMType != "" && draft.GeoOSMID != "" {
		tags = append(tags, []string{"r", fmt.Sprintf("https://www.openstreetmap.org/%s/%s", draft.GeoOSMType, draft.GeoOSMID)})
	}
	if draft.ImageURL != "" {
		tags = append(tags, []string{"image", draft.ImageURL})
	}
	if coordinate := p.calendarCoordinate(); coordinate != "" {
		tags = append(tags, []string{"a", coordinate})
	}

	return &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindCalendarEvent,
		Tags:      tags,
		Content:   draft.Description,
	}, nil
}

// buildDeletionEvent constructs a kind-5 tombstone referencing the target.
// Deletion drafts are exempt from the meetup field checks.
func (p *Publisher) buildDeletionEvent(draft *models.Draft) (*nostr.Event, error) {
	if draft.TargetEventID == "" {
		return nil, fmt.Errorf("deletion draft has no target event id")
	}
	return &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindDeletion,
		Tags:      [][]string{{"e", draft.TargetEventID}},
		Content:   "Meetup abgesagt",
	}, nil
}

// fanOut publishes to every relay independently. Individual failures are
// logged; the caller cannot distinguish "one accepted" from "all accepted".
func (p *Publisher) fanOut(ctx context.Context, event *nostr.Event) []Result {
	results := make([]Result, 0, len(p.relays))
	for _, relayURL := range p.relays {
		err := p.transport.Publish(ctx, relayURL, event)
		if err != nil {
			p.logger.Warn("Publish to relay failed",
				zap.String("relay", relayURL),
				zap.String("event_id", nostr.ShortID(event.ID)),
				zap.Error(err),
			)
		}
		results = append(results, Result{Relay: relayURL, Err: err})
	}
	return results
}

// appendToCalendar performs the read-modify-write on the parent calendar:
// resolve the latest calendar event, append the new coordinate, strip id and
// sig, re-sign with a fresh created_at, and broadcast the replacement.
// Two concurrent appends can race and one can be lost silently; the calendar
// is a full replacement document, not a merge.
func (p *Publisher) appendToCalendar(ctx context.Context, event *nostr.Event) {
	if p.calendar == "" {
		return
	}

	calendarEvent := p.resolver.ResolveEvent(ctx, nostr.Filter{IDs: []string{p.calendar}})
	if calendarEvent == nil {
		p.logger.Warn("Calendar not found, skipping append",
			zap.String("calendar", p.calendar),
			zap.String("event_id", nostr.ShortID(event.ID)),
		)
		return
	}

	coordinate := event.Coordinate()
	for _, existing := range calendarEvent.TagValues("a") {
		if existing == coordinate {
			return // already referenced
		}
	}

	updated := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      calendarEvent.Kind,
		Tags:      append(calendarEvent.Tags, []string{"a", coordinate}),
		Content:   calendarEvent.Content,
	}
	if err := updated.Sign(p.priv); err != nil {
		p.logger.Error("Failed to re-sign calendar", zap.Error(err))
		return
	}

	p.fanOut(ctx, updated)
}

// PublicKeyHex returns the hex pubkey events are signed with, or "".
func (p *Publisher) PublicKeyHex() string {
	if p.priv == nil {
		return ""
	}
	return nostr.PublicKeyHex(p.priv)
}

func (p *Publisher) parseLocalTime(date, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, p.location)
}

// calendarCoordinate normalizes the configured calendar address to the
// kind:pubkey:identifier form used in a-tags.
func (p *Publisher) calendarCoordinate() string {
	if p.calendar == "" {
		return ""
	}
	if !strings.HasPrefix(p.calendar, "naddr1") {
		return p.calendar
	}
	decoded, err := nip19.DecodeNAddr(p.calendar)
	if err != nil {
		p.logger.Warn("Invalid calendar naddr", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%d:%s:%s", decoded.Kind, decoded.Author, decoded.DTag)
}

// makeIdentifier derives a stable d-tag from the title plus a random suffix
// so repeated meetups with the same title stay distinct.
func makeIdentifier(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "meetup"
	}

	suffix := make([]byte, 4)
	rand.Read(suffix)
	return slug + "-" + hex.EncodeToString(suffix)
}
