package models

import "time"

// DraftKind distinguishes the two approval workflows.
type DraftKind int

const (
	DraftMeetup DraftKind = iota
	DraftDeletion
)

// Draft is the in-progress set of fields collected by the conversation state
// machine before handoff to the publish pipeline. Optional fields stay empty
// when their steps are skipped.
type Draft struct {
	Kind DraftKind

	// Meetup fields.
	Title       string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, 24h
	Location    string
	GeoDisplay  string // resolved display name from the geocoder
	GeoLat      string
	GeoLon      string
	GeoOSMType  string
	GeoOSMID    string
	Description string
	EndDate     string
	EndTime     string
	ImageURL    string

	// Deletion fields.
	TargetEventID string
	TargetTitle   string
}

// PublishedRecord is an audit entry for an event the bot published.
type PublishedRecord struct {
	EventID     string
	Kind        int
	Title       string
	ChatID      int64
	PublishedAt time.Time
}

// ApprovalRecord is an audit entry for an admin decision.
type ApprovalRecord struct {
	ChatID    int64
	Workflow  string // "meetup" or "deletion"
	Decision  string // "approved" or "rejected"
	DecidedAt time.Time
}

// ModerationRecord is an audit entry for a moderation action in the group chat.
type ModerationRecord struct {
	ChatID   int64
	Action   string // "url_cleaned" or "offtopic_reply"
	Detail   string
	ActionAt time.Time
}
