package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using
// SQLite.
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// ReplaceSlots rewrites a mentor's full grid in one transaction. Flushes are
// coalesced upstream, so the grid handed in here is authoritative for the
// mentor; retrying a locked database keeps short write bursts from failing.
func (r *AvailabilityRepository) ReplaceSlots(ctx context.Context, mentorID string, slots []persistence.AvailabilitySlot) error {
	if mentorID == "" {
		return persistence.ErrConstraintViolation
	}

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(tx, "DELETE FROM availability_slots WHERE mentor_id = ?", mentorID); err != nil {
				return err
			}

			query := `
				INSERT INTO availability_slots (mentor_id, day_of_week, start_time, end_time, available, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`
			for _, slot := range slots {
				available := 0
				if slot.Available {
					available = 1
				}
				if _, err := r.helper.ExecTx(tx, query,
					mentorID,
					slot.DayOfWeek,
					slot.StartTime,
					slot.EndTime,
					available,
					slot.UpdatedAt.UTC().Format(time.RFC3339),
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// ListSlots returns a mentor's grid ordered by day then start time.
func (r *AvailabilityRepository) ListSlots(ctx context.Context, mentorID string) ([]persistence.AvailabilitySlot, error) {
	if mentorID == "" {
		return nil, persistence.ErrNotFound
	}

	query := `
		SELECT mentor_id, day_of_week, start_time, end_time, available, updated_at
		FROM availability_slots
		WHERE mentor_id = ?
		ORDER BY day_of_week ASC, start_time ASC
	`

	rows, err := r.helper.Query(ctx, query, mentorID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.AvailabilitySlot
	for rows.Next() {
		var slot persistence.AvailabilitySlot
		var available int
		var updatedAtStr string
		if err := rows.Scan(&slot.MentorID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &available, &updatedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		slot.Available = available != 0
		if slot.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return slots, nil
}

// SlotExists reports whether the mentor has an available slot at the given
// weekly position.
func (r *AvailabilityRepository) SlotExists(ctx context.Context, mentorID string, dayOfWeek int, startTime string) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM availability_slots
		WHERE mentor_id = ? AND day_of_week = ? AND start_time = ? AND available = 1
	`

	var count int
	if err := r.helper.QueryRow(ctx, query, mentorID, dayOfWeek, startTime).Scan(&count); err != nil {
		return false, r.mapper.MapError(err)
	}

	return count > 0, nil
}
