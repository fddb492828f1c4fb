package ch

import (
	"context"
	"crypto/tls"
	"fmt"

	"stammtischbot/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/ directory)
	return nil
}

// RecordPublishedEvent appends a published-event audit row
func (db *ClickHouseDB) RecordPublishedEvent(ctx context.Context, rec models.PublishedRecord) error {
	err := db.conn.Exec(ctx, `INSERT INTO published_events (event_id, kind, title, chat_id, published_at) VALUES (?, ?, ?, ?, ?)`,
		rec.EventID, rec.Kind, rec.Title, rec.ChatID, rec.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to record published event: %w", err)
	}
	return nil
}

// RecordApproval appends an admin-decision audit row
func (db *ClickHouseDB) RecordApproval(ctx context.Context, rec models.ApprovalRecord) error {
	err := db.conn.Exec(ctx, `INSERT INTO approvals (chat_id, workflow, decision, decided_at) VALUES (?, ?, ?, ?)`,
		rec.ChatID, rec.Workflow, rec.Decision, rec.DecidedAt)
	if err != nil {
		return fmt.Errorf("failed to record approval: %w", err)
	}
	return nil
}

// RecordModerationAction appends a moderation audit row
func (db *ClickHouseDB) RecordModerationAction(ctx context.Context, rec models.ModerationRecord) error {
	err := db.conn.Exec(ctx, `INSERT INTO moderation_actions (chat_id, action, detail, action_at) VALUES (?, ?, ?, ?)`,
		rec.ChatID, rec.Action, rec.Detail, rec.ActionAt)
	if err != nil {
		return fmt.Errorf("failed to record moderation action: %w", err)
	}
	return nil
}

// LastPublished returns the most recent published-event records
func (db *ClickHouseDB) LastPublished(ctx context.Context, limit int) ([]models.PublishedRecord, error) {
	rows, err := db.conn.Query(ctx, `SELECT event_id, kind, title, chat_id, published_at FROM published_events ORDER BY published_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get published events: %w", err)
	}
	defer rows.Close()

	var records []models.PublishedRecord
	for rows.Next() {
		var rec models.PublishedRecord
		var kind int32
		if err := rows.Scan(&rec.EventID, &kind, &rec.Title, &rec.ChatID, &rec.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan published event: %w", err)
		}
		rec.Kind = int(kind)
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
