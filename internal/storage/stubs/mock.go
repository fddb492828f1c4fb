package stubs

import (
	"context"
	"sort"
	"sync"

	"stammtischbot/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface, used in
// tests and when no ClickHouse backend is configured.
type MockDB struct {
	mu          sync.RWMutex
	published   []models.PublishedRecord
	approvals   []models.ApprovalRecord
	moderations []models.ModerationRecord
}

// NewMockDB creates a new mock audit store
func NewMockDB() *MockDB {
	return &MockDB{}
}

// Initialize does nothing for the mock store
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// RecordPublishedEvent appends a published-event record
func (m *MockDB) RecordPublishedEvent(ctx context.Context, rec models.PublishedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.published = append(m.published, rec)
	return nil
}

// RecordApproval appends an admin-decision record
func (m *MockDB) RecordApproval(ctx context.Context, rec models.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.approvals = append(m.approvals, rec)
	return nil
}

// RecordModerationAction appends a moderation record
func (m *MockDB) RecordModerationAction(ctx context.Context, rec models.ModerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.moderations = append(m.moderations, rec)
	return nil
}

// LastPublished returns the most recent published-event records, newest first
func (m *MockDB) LastPublished(ctx context.Context, limit int) ([]models.PublishedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]models.PublishedRecord, len(m.published))
	copy(sorted, m.published)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit], nil
}

// Approvals returns a copy of the recorded admin decisions (test helper)
func (m *MockDB) Approvals() []models.ApprovalRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ApprovalRecord, len(m.approvals))
	copy(out, m.approvals)
	return out
}

// ModerationActions returns a copy of the recorded moderation actions (test helper)
func (m *MockDB) ModerationActions() []models.ModerationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ModerationRecord, len(m.moderations))
	copy(out, m.moderations)
	return out
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
