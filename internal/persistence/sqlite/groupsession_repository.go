package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

// GroupSessionRepository implements persistence.GroupSessionRepository using
// SQLite. The roster is stored in a child table and always read and written
// together with its session.
type GroupSessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewGroupSessionRepository creates a new SQLite group session repository.
func NewGroupSessionRepository(pool *ConnectionPool) *GroupSessionRepository {
	return &GroupSessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `id, topic_id, host_mentor_id, title, description, max_participants,
	status, starts_at, duration_minutes, location, meeting_link, meeting_address,
	created_at, updated_at`

// CreateGroupSession inserts a session and its initial roster atomically.
func (r *GroupSessionRepository) CreateGroupSession(ctx context.Context, session persistence.GroupSession) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO group_sessions (` + sessionColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := r.helper.ExecTx(tx, query,
			session.ID,
			session.TopicID,
			session.HostMentorID,
			session.Title,
			session.Description,
			session.MaxParticipants,
			session.Status,
			session.StartsAt.UTC().Format(time.RFC3339),
			session.DurationMinutes,
			session.Location,
			session.MeetingLink,
			session.MeetingAddress,
			session.CreatedAt.UTC().Format(time.RFC3339),
			session.UpdatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
		return r.writeRoster(tx, session.ID, session.Participants)
	})
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// UpdateGroupSession rewrites a session row and replaces its roster.
func (r *GroupSessionRepository) UpdateGroupSession(ctx context.Context, session persistence.GroupSession) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE group_sessions
			SET title = ?, description = ?, max_participants = ?, status = ?, starts_at = ?,
				duration_minutes = ?, location = ?, meeting_link = ?, meeting_address = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(tx, query,
			session.Title,
			session.Description,
			session.MaxParticipants,
			session.Status,
			session.StartsAt.UTC().Format(time.RFC3339),
			session.DurationMinutes,
			session.Location,
			session.MeetingLink,
			session.MeetingAddress,
			session.UpdatedAt.UTC().Format(time.RFC3339),
			session.ID,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM session_participants WHERE session_id = ?", session.ID); err != nil {
			return err
		}
		return r.writeRoster(tx, session.ID, session.Participants)
	})
	if err != nil {
		if err == persistence.ErrNotFound {
			return err
		}
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// GetGroupSession retrieves a session with its full roster.
func (r *GroupSessionRepository) GetGroupSession(ctx context.Context, id string) (persistence.GroupSession, error) {
	if id == "" {
		return persistence.GroupSession{}, persistence.ErrNotFound
	}

	query := `SELECT ` + sessionColumns + ` FROM group_sessions WHERE id = ?`

	session, err := scanGroupSession(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.GroupSession{}, persistence.ErrNotFound
		}
		return persistence.GroupSession{}, r.mapper.MapError(err)
	}

	session.Participants, err = r.readRoster(ctx, id)
	if err != nil {
		return persistence.GroupSession{}, err
	}

	return session, nil
}

// ListGroupSessions returns every session with its roster, ordered by start.
func (r *GroupSessionRepository) ListGroupSessions(ctx context.Context) ([]persistence.GroupSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM group_sessions ORDER BY starts_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.GroupSession
	for rows.Next() {
		session, err := scanGroupSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range sessions {
		sessions[i].Participants, err = r.readRoster(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// DeleteGroupSession removes a session and, via cascade, its roster.
func (r *GroupSessionRepository) DeleteGroupSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM group_sessions WHERE id = ?", id)
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *GroupSessionRepository) writeRoster(tx *sql.Tx, sessionID string, participants []persistence.Participant) error {
	query := `
		INSERT INTO session_participants (session_id, user_id, display_name, role, status, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, p := range participants {
		if _, err := r.helper.ExecTx(tx, query,
			sessionID,
			p.ID,
			p.DisplayName,
			p.Role,
			p.Status,
			p.JoinedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *GroupSessionRepository) readRoster(ctx context.Context, sessionID string) ([]persistence.Participant, error) {
	query := `
		SELECT user_id, display_name, role, status, joined_at
		FROM session_participants
		WHERE session_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`

	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		var p persistence.Participant
		var joinedAtStr string
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Role, &p.Status, &joinedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if p.JoinedAt, err = time.Parse(time.RFC3339, joinedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse joined_at: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return participants, nil
}

func scanGroupSession(row rowScanner) (persistence.GroupSession, error) {
	var session persistence.GroupSession
	var startsAtStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&session.ID,
		&session.TopicID,
		&session.HostMentorID,
		&session.Title,
		&session.Description,
		&session.MaxParticipants,
		&session.Status,
		&startsAtStr,
		&session.DurationMinutes,
		&session.Location,
		&session.MeetingLink,
		&session.MeetingAddress,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.GroupSession{}, err
	}

	if session.StartsAt, err = time.Parse(time.RFC3339, startsAtStr); err != nil {
		return persistence.GroupSession{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.GroupSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.GroupSession{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return session, nil
}
