package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

// TopicRepository implements persistence.TopicRepository using SQLite.
type TopicRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTopicRepository creates a new SQLite topic repository.
func NewTopicRepository(pool *ConnectionPool) *TopicRepository {
	return &TopicRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const topicColumns = `id, author_id, author_display_name, title, description, category,
	difficulty, status, enhanced_title, enhanced_description, curator_notes,
	submitted_at, updated_at`

// CreateTopic inserts a new topic submission.
func (r *TopicRepository) CreateTopic(ctx context.Context, topic persistence.Topic) error {
	if topic.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO topics (` + topicColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		topic.ID,
		topic.AuthorID,
		topic.AuthorDisplayName,
		topic.Title,
		topic.Description,
		topic.Category,
		topic.Difficulty,
		topic.Status,
		topic.EnhancedTitle,
		topic.EnhancedDescription,
		topic.CuratorNotes,
		topic.SubmittedAt.UTC().Format(time.RFC3339),
		topic.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// UpdateTopic rewrites a topic row.
func (r *TopicRepository) UpdateTopic(ctx context.Context, topic persistence.Topic) error {
	if topic.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE topics
		SET title = ?, description = ?, category = ?, difficulty = ?, status = ?,
			enhanced_title = ?, enhanced_description = ?, curator_notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		topic.Title,
		topic.Description,
		topic.Category,
		topic.Difficulty,
		topic.Status,
		topic.EnhancedTitle,
		topic.EnhancedDescription,
		topic.CuratorNotes,
		topic.UpdatedAt.UTC().Format(time.RFC3339),
		topic.ID,
	)
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

// GetTopic retrieves a topic by ID.
func (r *TopicRepository) GetTopic(ctx context.Context, id string) (persistence.Topic, error) {
	if id == "" {
		return persistence.Topic{}, persistence.ErrNotFound
	}

	query := `SELECT ` + topicColumns + ` FROM topics WHERE id = ?`

	topic, err := scanTopic(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Topic{}, persistence.ErrNotFound
		}
		return persistence.Topic{}, r.mapper.MapError(err)
	}

	return topic, nil
}

// ListTopics returns topics matching the filter ordered by submission time.
func (r *TopicRepository) ListTopics(ctx context.Context, filter persistence.TopicFilter) ([]persistence.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics`

	var conditions []string
	var args []interface{}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Difficulty != "" {
		conditions = append(conditions, "difficulty = ?")
		args = append(args, filter.Difficulty)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var topics []persistence.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return topics, nil
}

// DeleteTopic removes a topic and, via cascade, its votes.
func (r *TopicRepository) DeleteTopic(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM topics WHERE id = ?", id)
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

// UpsertVote replaces any existing vote by the same voter on the same topic.
func (r *TopicRepository) UpsertVote(ctx context.Context, vote persistence.Vote) error {
	if vote.TopicID == "" || vote.VoterID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO votes (id, topic_id, voter_id, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (topic_id, voter_id)
		DO UPDATE SET kind = excluded.kind, created_at = excluded.created_at
	`

	_, err := r.helper.Exec(ctx, query,
		vote.ID,
		vote.TopicID,
		vote.VoterID,
		vote.Kind,
		vote.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// DeleteVote removes a voter's vote on a topic.
func (r *TopicRepository) DeleteVote(ctx context.Context, topicID, voterID string) error {
	result, err := r.helper.Exec(ctx, "DELETE FROM votes WHERE topic_id = ? AND voter_id = ?", topicID, voterID)
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

// ListVotes returns every vote cast on the given topics.
func (r *TopicRepository) ListVotes(ctx context.Context, topicIDs []string) ([]persistence.Vote, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(topicIDs))
	placeholders = placeholders[:len(placeholders)-2]
	query := `
		SELECT id, topic_id, voter_id, kind, created_at
		FROM votes
		WHERE topic_id IN (` + placeholders + `)
		ORDER BY topic_id ASC, voter_id ASC
	`

	args := make([]interface{}, len(topicIDs))
	for i, id := range topicIDs {
		args[i] = id
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var votes []persistence.Vote
	for rows.Next() {
		var vote persistence.Vote
		var createdAtStr string
		if err := rows.Scan(&vote.ID, &vote.TopicID, &vote.VoterID, &vote.Kind, &createdAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if vote.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return votes, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTopic(row rowScanner) (persistence.Topic, error) {
	var topic persistence.Topic
	var submittedAtStr, updatedAtStr string

	err := row.Scan(
		&topic.ID,
		&topic.AuthorID,
		&topic.AuthorDisplayName,
		&topic.Title,
		&topic.Description,
		&topic.Category,
		&topic.Difficulty,
		&topic.Status,
		&topic.EnhancedTitle,
		&topic.EnhancedDescription,
		&topic.CuratorNotes,
		&submittedAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Topic{}, err
	}

	if topic.SubmittedAt, err = time.Parse(time.RFC3339, submittedAtStr); err != nil {
		return persistence.Topic{}, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	if topic.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Topic{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return topic, nil
}

// mapWriteError maps SQLite write failures to persistence sentinels.
func mapWriteError(err error, mapper *ErrorMapper) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed", "PRIMARY KEY"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed", "foreign key constraint"}) {
		return persistence.ErrForeignKeyViolation
	}
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}
	if containsAny(errStr, []string{"database is locked", "database is busy"}) {
		return persistence.ErrUnavailable
	}

	return mapper.MapError(err)
}
