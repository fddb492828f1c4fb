package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stammtischbot/internal/geocoder"
	"stammtischbot/internal/models"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/relay"
	"stammtischbot/internal/storage/stubs"
	"stammtischbot/internal/telegram"
)

const (
	testAdminChat int64 = 999
	testUserChat  int64 = 42
	testCalendar        = "31924:aabb:meetups"
)

type sentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Opts      telegram.SendOptions
}

// fakeGateway records everything the bot sends.
type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []sentMessage
	answers []string
	sendErr error
	nextID  int
}

func (g *fakeGateway) SendMessage(chatID int64, text string, opts telegram.SendOptions) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.nextID++
	g.sent = append(g.sent, sentMessage{ChatID: chatID, MessageID: g.nextID, Text: text, Opts: opts})
	return g.nextID, nil
}

func (g *fakeGateway) EditMessageText(chatID int64, messageID int, text string, opts telegram.SendOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Opts: opts})
	return nil
}

func (g *fakeGateway) DeleteMessage(chatID int64, messageID int) error {
	return nil
}

func (g *fakeGateway) AnswerCallbackQuery(callbackID string, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, text)
	return nil
}

func (g *fakeGateway) lastTo(chatID int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].ChatID == chatID {
			return g.sent[i].Text
		}
	}
	return ""
}

func (g *fakeGateway) sentTo(chatID int64) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// fakeResolver serves scripted events by filter id.
type fakeResolver struct {
	events   map[string]*nostr.Event
	calendar relay.Calendar
	deleted  map[string]bool
}

func (f *fakeResolver) ResolveEvent(ctx context.Context, filter nostr.Filter) *nostr.Event {
	if len(filter.IDs) == 0 {
		return nil
	}
	return f.events[filter.IDs[0]]
}

func (f *fakeResolver) ResolveCalendar(ctx context.Context, calendarAddr string) relay.Calendar {
	return f.calendar
}

func (f *fakeResolver) IsDeleted(ctx context.Context, eventID string) bool {
	return f.deleted[eventID]
}

// fakePublisher records drafts and returns a canned event.
type fakePublisher struct {
	mu     sync.Mutex
	drafts []models.Draft
	event  *nostr.Event
	err    error
}

func (f *fakePublisher) PublishDraft(ctx context.Context, draft *models.Draft) (*nostr.Event, []relay.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, *draft)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.event, []relay.Result{{Relay: "wss://a"}}, nil
}

func (f *fakePublisher) PublicKeyHex() string {
	return strings.Repeat("ab", 32)
}

func (f *fakePublisher) published() []models.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Draft(nil), f.drafts...)
}

// fakeGeocoder returns a scripted place; onLookup runs mid-call to simulate
// concurrent state changes.
type fakeGeocoder struct {
	place    *geocoder.Place
	err      error
	onLookup func()
}

func (f *fakeGeocoder) Lookup(ctx context.Context, query string) (*geocoder.Place, error) {
	if f.onLookup != nil {
		f.onLookup()
	}
	return f.place, f.err
}

type testEnv struct {
	bot      *Bot
	gateway  *fakeGateway
	resolver *fakeResolver
	pub      *fakePublisher
	geo      *fakeGeocoder
	db       *stubs.MockDB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		gateway: &fakeGateway{},
		resolver: &fakeResolver{
			events:  map[string]*nostr.Event{},
			deleted: map[string]bool{},
		},
		pub: &fakePublisher{
			event: &nostr.Event{
				ID:     strings.Repeat("cd", 32),
				PubKey: strings.Repeat("ab", 32),
				Kind:   nostr.KindCalendarEvent,
				Tags:   [][]string{{"d", "stammtisch-1234"}},
			},
		},
		geo: &fakeGeocoder{
			place: &geocoder.Place{
				DisplayName: "Rathausplatz, Zürich, Schweiz",
				Lat:         "47.37",
				Lon:         "8.54",
				OSMType:     "node",
				OSMID:       123456,
			},
		},
		db: stubs.NewMockDB(),
	}
	env.bot = New(env.gateway, env.resolver, env.pub, env.geo, env.db, testAdminChat, testCalendar, zap.NewNop())
	return env
}

func privateMessage(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:      &tgbotapi.User{ID: 7, UserName: "satoshi"},
		Text:      text,
	}}
}

func groupMessage(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
		From:      &tgbotapi.User{ID: 7, UserName: "satoshi"},
		Text:      text,
	}}
}

func command(chatID int64, cmd string) tgbotapi.Update {
	u := privateMessage(chatID, cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return u
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 500,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		},
	}}
}

// runMeetupToOptions drives a fresh conversation up to the options menu.
func runMeetupToOptions(t *testing.T, env *testEnv) {
	t.Helper()
	env.bot.HandleUpdate(command(testUserChat, "/meetup"))
	env.bot.HandleUpdate(privateMessage(testUserChat, "Stammtisch Zürich"))
	env.bot.HandleUpdate(privateMessage(testUserChat, "2026-03-05"))
	env.bot.HandleUpdate(privateMessage(testUserChat, "19:00"))
	env.bot.HandleUpdate(privateMessage(testUserChat, "Rathausplatz Zürich"))
	env.bot.HandleUpdate(callback(testUserChat, "loc:ok"))
	env.bot.HandleUpdate(privateMessage(testUserChat, "Bier und Bitcoin am Rathausplatz."))

	state := env.bot.store.Get(testUserChat)
	require.NotNil(t, state)
	require.Equal(t, StepOptions, state.Step)
}

func TestMeetupHappyPath(t *testing.T) {
	env := newTestEnv(t)

	env.bot.HandleUpdate(command(testUserChat, "/meetup"))
	assert.Equal(t, promptTitle, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "Stammtisch Zürich"))
	assert.Equal(t, promptDate, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "2026-03-05"))
	assert.Equal(t, promptTime, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "19:00"))
	assert.Equal(t, promptLocation, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "Rathausplatz Zürich"))
	assert.Contains(t, env.gateway.lastTo(testUserChat), "Rathausplatz, Zürich, Schweiz")

	env.bot.HandleUpdate(callback(testUserChat, "loc:ok"))
	assert.Equal(t, promptDescription, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "Bier und Bitcoin."))
	assert.Equal(t, promptOptions, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))

	// The draft landed in the admin channel with decision controls
	adminMsgs := env.gateway.sentTo(testAdminChat)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0].Text, "Stammtisch Zürich")
	assert.Contains(t, adminMsgs[0].Text, "2026-03-05")
	assert.Contains(t, adminMsgs[0].Text, "19:00")
	assert.Contains(t, adminMsgs[0].Text, "Rathausplatz, Zürich, Schweiz")
	assert.Contains(t, adminMsgs[0].Text, "Bier und Bitcoin.")
	assert.Contains(t, adminMsgs[0].Text, "@satoshi")
	require.Len(t, adminMsgs[0].Opts.Keyboard, 1)
	assert.Equal(t, "approve:42", adminMsgs[0].Opts.Keyboard[0][0].Data)
	assert.Equal(t, "reject:42", adminMsgs[0].Opts.Keyboard[0][1].Data)

	// The options-menu message was replaced with the confirmation
	require.NotEmpty(t, env.gateway.edits)
	assert.Equal(t, submittedText, env.gateway.edits[0].Text)

	state := env.bot.store.Get(testUserChat)
	require.NotNil(t, state)
	assert.True(t, state.Submitted)
	assert.Equal(t, StepAwaitDecision, state.Step)

	// Admin approves
	env.bot.HandleUpdate(callback(testAdminChat, "approve:42"))

	published := env.pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, models.DraftMeetup, published[0].Kind)
	assert.Equal(t, "Stammtisch Zürich", published[0].Title)
	assert.Equal(t, "Rathausplatz, Zürich, Schweiz", published[0].GeoDisplay)

	assert.Contains(t, env.gateway.lastTo(testUserChat), "freigegeben")
	assert.Contains(t, env.gateway.lastTo(testUserChat), "naddr1")
	assert.Nil(t, env.bot.store.Get(testUserChat))

	approvals := env.db.Approvals()
	require.Len(t, approvals, 1)
	assert.Equal(t, "meetup", approvals[0].Workflow)
	assert.Equal(t, "approved", approvals[0].Decision)
}

func TestRejection(t *testing.T) {
	env := newTestEnv(t)
	runMeetupToOptions(t, env)
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))

	env.bot.HandleUpdate(callback(testAdminChat, "reject:42"))

	assert.Empty(t, env.pub.published())
	assert.Equal(t, rejectedText, env.gateway.lastTo(testUserChat))
	assert.Nil(t, env.bot.store.Get(testUserChat))

	approvals := env.db.Approvals()
	require.Len(t, approvals, 1)
	assert.Equal(t, "rejected", approvals[0].Decision)
}

func TestDuplicateSubmission(t *testing.T) {
	env := newTestEnv(t)
	runMeetupToOptions(t, env)

	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))

	// Only one admin request despite the double tap
	assert.Len(t, env.gateway.sentTo(testAdminChat), 1)
	assert.Contains(t, env.gateway.answers, alreadySubmittedText)
}

func TestDuplicateDecision(t *testing.T) {
	env := newTestEnv(t)
	runMeetupToOptions(t, env)
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))

	env.bot.HandleUpdate(callback(testAdminChat, "approve:42"))
	env.bot.HandleUpdate(callback(testAdminChat, "approve:42"))
	env.bot.HandleUpdate(callback(testAdminChat, "reject:42"))

	// Exactly one publish; the late decisions were acknowledged as no-ops
	assert.Len(t, env.pub.published(), 1)
	count := 0
	for _, answer := range env.gateway.answers {
		if answer == alreadyDecidedText {
			count++
		}
	}
	assert.Equal(t, 2, count)

	assert.Len(t, env.db.Approvals(), 1)
}

func TestPublishFailureAfterApproval(t *testing.T) {
	env := newTestEnv(t)
	env.pub.err = assert.AnError

	runMeetupToOptions(t, env)
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))
	env.bot.HandleUpdate(callback(testAdminChat, "approve:42"))

	assert.Equal(t, publishFailedText, env.gateway.lastTo(testUserChat))
	// The approval stands even though publishing failed
	approvals := env.db.Approvals()
	require.Len(t, approvals, 1)
	assert.Equal(t, "approved", approvals[0].Decision)
	assert.Nil(t, env.bot.store.Get(testUserChat))
}

func TestAdminSendFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	runMeetupToOptions(t, env)

	env.gateway.sendErr = assert.AnError
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))
	env.gateway.sendErr = nil

	state := env.bot.store.Get(testUserChat)
	require.NotNil(t, state)
	assert.False(t, state.Submitted)
	assert.Equal(t, StepOptions, state.Step)

	// Retry succeeds
	env.bot.HandleUpdate(callback(testUserChat, "opt:submit"))
	assert.Len(t, env.gateway.sentTo(testAdminChat), 1)
}

func TestDeletionWorkflow(t *testing.T) {
	env := newTestEnv(t)

	targetID := strings.Repeat("12", 32)
	env.resolver.events[targetID] = &nostr.Event{
		ID:     targetID,
		PubKey: strings.Repeat("ab", 32),
		Kind:   nostr.KindCalendarEvent,
		Tags:   [][]string{{"title", "Stammtisch Basel"}},
	}

	env.bot.HandleUpdate(command(testUserChat, "/meetup_delete"))
	assert.Equal(t, promptDeleteLink, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, "kein link"))
	assert.Equal(t, errBadEventLink, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(privateMessage(testUserChat, targetID))

	adminMsgs := env.gateway.sentTo(testAdminChat)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0].Text, "Löschantrag")
	assert.Contains(t, adminMsgs[0].Text, "Stammtisch Basel")
	assert.Equal(t, deleteSubmittedText, env.gateway.lastTo(testUserChat))

	env.bot.HandleUpdate(callback(testAdminChat, "approve:42"))

	published := env.pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, models.DraftDeletion, published[0].Kind)
	assert.Equal(t, targetID, published[0].TargetEventID)
	assert.Equal(t, deleteApprovedText, env.gateway.lastTo(testUserChat))

	approvals := env.db.Approvals()
	require.Len(t, approvals, 1)
	assert.Equal(t, "deletion", approvals[0].Workflow)
}

func TestDeletionTargetNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.bot.HandleUpdate(command(testUserChat, "/meetup_delete"))
	env.bot.HandleUpdate(privateMessage(testUserChat, strings.Repeat("ff", 32)))

	assert.Equal(t, errEventMissing, env.gateway.lastTo(testUserChat))
	// Conversation stays open for another attempt
	state := env.bot.store.Get(testUserChat)
	require.NotNil(t, state)
	assert.Equal(t, StepDeleteTarget, state.Step)
	assert.Empty(t, env.gateway.sentTo(testAdminChat))
}

func TestWelcomeMessage(t *testing.T) {
	env := newTestEnv(t)

	update := groupMessage(-100500, "")
	update.Message.NewChatMembers = []tgbotapi.User{{ID: 8, UserName: "newbie"}}
	env.bot.HandleUpdate(update)

	assert.Equal(t, welcomeText, env.gateway.lastTo(-100500))
}

func TestMeetupListing(t *testing.T) {
	env := newTestEnv(t)

	deletedID := strings.Repeat("dd", 32)
	env.resolver.calendar = relay.Calendar{
		Name: "Einundzwanzig Meetups",
		Events: []nostr.Event{
			{
				ID:   strings.Repeat("22", 32),
				Tags: [][]string{{"title", "Später"}, {"start", "1800000000"}},
			},
			{
				ID:   strings.Repeat("11", 32),
				Tags: [][]string{{"title", "Früher"}, {"start", "1700000000"}, {"location", "Zürich"}},
			},
			{
				ID:   deletedID,
				Tags: [][]string{{"title", "Abgesagt"}, {"start", "1750000000"}},
			},
		},
	}
	env.resolver.deleted[deletedID] = true

	env.bot.HandleUpdate(command(testUserChat, "/meetups"))

	listing := env.gateway.lastTo(testUserChat)
	assert.Contains(t, listing, "Einundzwanzig Meetups")
	assert.Contains(t, listing, "Früher")
	assert.Contains(t, listing, "Später")
	assert.Contains(t, listing, "Zürich")
	assert.NotContains(t, listing, "Abgesagt")

	// Chronological order
	assert.Less(t, strings.Index(listing, "Früher"), strings.Index(listing, "Später"))
}

func TestMeetupListing_Empty(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.calendar = relay.Calendar{Name: "Meetup-Kalender"}

	env.bot.HandleUpdate(command(testUserChat, "/meetups"))
	assert.Contains(t, env.gateway.lastTo(testUserChat), "keine Meetups geplant")
}

func TestLinksCommand(t *testing.T) {
	env := newTestEnv(t)
	env.bot.HandleUpdate(command(testUserChat, "/links"))

	text := env.gateway.lastTo(testUserChat)
	for _, link := range communityLinks {
		assert.Contains(t, text, link.URL)
	}
}

func TestPerChatSerialization(t *testing.T) {
	env := newTestEnv(t)
	unlock := env.bot.lockChat(testUserChat)

	acquired := make(chan struct{})
	go func() {
		release := env.bot.lockChat(testUserChat)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second update for the chat ran while the first was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	// Other chats are not held up
	release := env.bot.lockChat(testAdminChat)
	release()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("chat lock was never released")
	}
}

func TestConversationOwner(t *testing.T) {
	adminClick := callback(testAdminChat, "approve:42").CallbackQuery
	assert.Equal(t, testUserChat, conversationOwner(adminClick))

	userClick := callback(testUserChat, "loc:ok").CallbackQuery
	assert.Equal(t, testUserChat, conversationOwner(userClick))
}

func TestStatusCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.RecordPublishedEvent(context.Background(), models.PublishedRecord{
		EventID:     strings.Repeat("cd", 32),
		Kind:        nostr.KindCalendarEvent,
		Title:       "Bitcoin Stammtisch Zürich",
		ChatID:      testUserChat,
		PublishedAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}))

	env.bot.HandleUpdate(command(testAdminChat, "/status"))

	text := env.gateway.lastTo(testAdminChat)
	assert.Contains(t, text, "npub1")
	assert.Contains(t, text, "Bitcoin Stammtisch Zürich")
	assert.Contains(t, text, "2026-03-01 18:00")
	assert.Contains(t, text, nostr.ShortID(strings.Repeat("cd", 32)))
}

func TestStatusCommand_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	env.bot.HandleUpdate(command(testUserChat, "/status"))
	assert.Equal(t, unknownCommandText, env.gateway.lastTo(testUserChat))

	u := groupMessage(-100500, "/status")
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/status")}}
	env.bot.HandleUpdate(u)
	assert.Empty(t, env.gateway.sentTo(-100500))
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	env.bot.HandleUpdate(command(testUserChat, "/frobnicate"))
	assert.Equal(t, unknownCommandText, env.gateway.lastTo(testUserChat))

	// Groups stay quiet to avoid noise
	u := groupMessage(-100500, "/frobnicate")
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/frobnicate")}}
	env.bot.HandleUpdate(u)
	assert.Empty(t, env.gateway.sentTo(-100500))
}
