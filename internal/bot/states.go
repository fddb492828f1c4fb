package bot

import (
	"sync"
	"time"

	"stammtischbot/internal/models"
)

// Step is one position in the event-creation or event-deletion dialogue.
type Step int

const (
	StepTitle Step = iota
	StepDate
	StepTime
	StepLocation
	StepLocationConfirm
	StepDescription
	StepOptions
	StepEndDate
	StepEndTime
	StepImage
	StepDeleteTarget
	StepAwaitDecision
)

// ConversationState tracks one chat's position in a multi-step workflow.
// It is owned exclusively by that chat's handlers.
type ConversationState struct {
	Step      Step
	Draft     models.Draft
	Submitted bool
	Decided   bool
	CreatedAt time.Time
	UserID    int64
	Username  string

	// AdminMessageID is the approve/reject control message in the admin chat,
	// set once the draft is submitted.
	AdminMessageID int

	// pendingPlace holds the geocoder hit awaiting user confirmation.
	PendingGeoDisplay string
	PendingGeoLat     string
	PendingGeoLon     string
	PendingGeoOSMType string
	PendingGeoOSMID   string
}

// ConversationStore keeps per-chat conversation state. The in-memory
// implementation is the only one today; a persistent store could implement
// the same interface without touching the state machine.
type ConversationStore interface {
	Get(chatID int64) *ConversationState
	Put(chatID int64, state *ConversationState)
	Delete(chatID int64)

	// Sweep removes states older than maxAge and returns how many were removed.
	Sweep(maxAge time.Duration) int
}

// MemoryStore is the process-memory ConversationStore.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*ConversationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int64]*ConversationState),
	}
}

func (s *MemoryStore) Get(chatID int64) *ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[chatID]
}

func (s *MemoryStore) Put(chatID int64, state *ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
}

func (s *MemoryStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}

// Sweep garbage-collects abandoned conversations to bound memory.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for chatID, state := range s.states {
		if state.CreatedAt.Before(cutoff) {
			delete(s.states, chatID)
			removed++
		}
	}
	return removed
}
