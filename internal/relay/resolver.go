package relay

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
)

// Transport is the per-relay query/publish surface the resolver and publisher
// are built on. *Client implements it; tests substitute a fake.
type Transport interface {
	Query(ctx context.Context, relayURL string, filter nostr.Filter, timeout time.Duration) (*nostr.Event, error)
	QueryAll(ctx context.Context, relayURL string, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error)
	Publish(ctx context.Context, relayURL string, event *nostr.Event) error
}

// Resolver turns logical lookups into concrete events despite relay
// unreliability: relays are tried in order, errors are logged and skipped,
// and the first satisfying answer wins. No quorum, no conflict resolution.
type Resolver struct {
	transport Transport
	relays    []string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewResolver creates a resolver over the configured relay list.
func NewResolver(transport Transport, relays []string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Resolver{
		transport: transport,
		relays:    relays,
		timeout:   timeout,
		logger:    logger,
	}
}

// ResolveEvent returns the first event any relay yields for the filter, or
// nil when every relay failed or returned nothing. A leading naddr-encoded id
// is decoded into a coordinate filter first. Events failing signature
// verification are discarded.
func (r *Resolver) ResolveEvent(ctx context.Context, filter nostr.Filter) *nostr.Event {
	if len(filter.IDs) > 0 && strings.HasPrefix(filter.IDs[0], "naddr1") {
		decoded, err := nip19.DecodeNAddr(filter.IDs[0])
		if err != nil {
			r.logger.Warn("Failed to decode naddr filter id", zap.Error(err))
			return nil
		}
		filter = nostr.Filter{
			Kinds:   []int{int(decoded.Kind)},
			Authors: []string{decoded.Author},
			Tags:    map[string][]string{"d": {decoded.DTag}},
		}
	}

	for _, relayURL := range r.relays {
		ev, err := r.transport.Query(ctx, relayURL, filter, r.timeout)
		if err != nil {
			r.logger.Warn("Relay query failed",
				zap.String("relay", relayURL),
				zap.Error(err),
			)
			continue
		}
		if ev == nil {
			continue
		}
		if !ev.Verify() {
			r.logger.Warn("Discarding event with bad id or signature",
				zap.String("relay", relayURL),
				zap.String("event_id", nostr.ShortID(ev.ID)),
			)
			continue
		}
		return ev
	}
	return nil
}

// ResolveCoordinate resolves a kind:pubkey:identifier coordinate string.
func (r *Resolver) ResolveCoordinate(ctx context.Context, coordinate string) *nostr.Event {
	parts := strings.SplitN(coordinate, ":", 3)
	if len(parts) != 3 {
		r.logger.Warn("Malformed coordinate", zap.String("coordinate", coordinate))
		return nil
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		r.logger.Warn("Malformed coordinate kind", zap.String("coordinate", coordinate))
		return nil
	}
	return r.ResolveEvent(ctx, nostr.Filter{
		Kinds:   []int{kind},
		Authors: []string{parts[1]},
		Tags:    map[string][]string{"d": {parts[2]}},
	})
}

// Calendar is a resolved calendar document with its referenced events in
// coordinate order.
type Calendar struct {
	Name   string
	Events []nostr.Event
}

// ResolveCalendar resolves the calendar addressed by the naddr or coordinate
// string, then resolves each referenced child event sequentially. When the
// calendar itself cannot be resolved the event list is empty and the name is
// a placeholder.
func (r *Resolver) ResolveCalendar(ctx context.Context, calendarAddr string) Calendar {
	calendarEvent := r.ResolveEvent(ctx, nostr.Filter{IDs: []string{calendarAddr}})
	if calendarEvent == nil {
		r.logger.Warn("Calendar could not be resolved", zap.String("calendar", calendarAddr))
		return Calendar{Name: "Meetup-Kalender"}
	}

	cal := Calendar{Name: calendarEvent.TagValue("title")}
	if cal.Name == "" {
		cal.Name = calendarEvent.TagValue("name")
	}
	if cal.Name == "" {
		cal.Name = "Meetup-Kalender"
	}

	for _, coordinate := range calendarEvent.TagValues("a") {
		ev := r.ResolveCoordinate(ctx, coordinate)
		if ev == nil {
			r.logger.Warn("Calendar child could not be resolved",
				zap.String("coordinate", coordinate),
			)
			continue
		}
		cal.Events = append(cal.Events, *ev)
	}
	return cal
}

// IsDeleted reports whether a kind-5 tombstone referencing the event id
// exists on any relay. Listing paths must consult this per event; the
// original stays resolvable forever.
func (r *Resolver) IsDeleted(ctx context.Context, eventID string) bool {
	tombstone := r.ResolveEvent(ctx, nostr.Filter{
		Kinds: []int{nostr.KindDeletion},
		Tags:  map[string][]string{"e": {eventID}},
	})
	return tombstone != nil
}

// Relays returns the configured relay list.
func (r *Resolver) Relays() []string {
	return r.relays
}
