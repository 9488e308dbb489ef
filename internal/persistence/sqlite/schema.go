package sqlite

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		author_display_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		difficulty TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		enhanced_title TEXT,
		enhanced_description TEXT,
		curator_notes TEXT,
		submitted_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT NOT NULL,
		topic_id TEXT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
		voter_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('upvote', 'downvote')),
		created_at TEXT NOT NULL,
		PRIMARY KEY (topic_id, voter_id)
	)`,
	`CREATE TABLE IF NOT EXISTS availability_slots (
		mentor_id TEXT NOT NULL,
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		available INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (mentor_id, day_of_week, start_time)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		mentor_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'requested',
		denial_reason TEXT,
		meeting_link TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_slot_claim
		ON bookings (mentor_id, start_at)
		WHERE status IN ('requested', 'approved')`,
	`CREATE TABLE IF NOT EXISTS group_sessions (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL REFERENCES topics(id),
		host_mentor_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		max_participants INTEGER NOT NULL CHECK (max_participants > 0),
		status TEXT NOT NULL DEFAULT 'planning',
		starts_at TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		location TEXT NOT NULL,
		meeting_link TEXT,
		meeting_address TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_participants (
		session_id TEXT NOT NULL REFERENCES group_sessions(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		joined_at TEXT NOT NULL,
		PRIMARY KEY (session_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS topics_status_idx ON topics (status)`,
	`CREATE INDEX IF NOT EXISTS bookings_learner_idx ON bookings (learner_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_mentor_idx ON bookings (mentor_id)`,
}

// Migrate creates any missing tables and indexes. Statements are idempotent
// so repeated startup runs are safe.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
