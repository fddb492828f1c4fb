package bot

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stammtischbot/internal/nip19"
	"stammtischbot/internal/nostr"
)

// HTTPServer exposes the resolved meetup listing as JSON, alongside the
// webhook and health endpoints wired by the app.
type HTTPServer struct {
	bot *Bot
}

// NewHTTPServer creates the HTTP API for the bot.
func NewHTTPServer(bot *Bot) *HTTPServer {
	return &HTTPServer{bot: bot}
}

// RegisterRoutes registers the API routes on the provided mux.
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/meetups", hs.handleMeetups)
}

type meetupJSON struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    int64  `json:"start,omitempty"`
	Location string `json:"location,omitempty"`
	Naddr    string `json:"naddr,omitempty"`
}

// handleMeetups resolves the calendar and returns the tombstone-filtered
// event list.
func (hs *HTTPServer) handleMeetups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	calendar := hs.bot.resolver.ResolveCalendar(ctx, hs.bot.calendar)
	events := hs.bot.upcomingEvents(ctx, calendar)

	out := struct {
		Calendar  string       `json:"calendar"`
		Meetups   []meetupJSON `json:"meetups"`
		FetchedAt time.Time    `json:"fetched_at"`
	}{
		Calendar:  calendar.Name,
		Meetups:   make([]meetupJSON, 0, len(events)),
		FetchedAt: time.Now().UTC(),
	}

	for _, ev := range events {
		item := meetupJSON{
			ID:       ev.ID,
			Title:    ev.TagValue("title"),
			Start:    eventStart(&ev),
			Location: ev.TagValue("location"),
		}
		if addr, err := nip19.EncodeNAddr(uint32(nostr.KindCalendarEvent), ev.PubKey, ev.Identifier()); err == nil {
			item.Naddr = addr
		}
		out.Meetups = append(out.Meetups, item)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		hs.bot.logger.Error("Failed to encode meetup listing", zap.Error(err))
	}
}
