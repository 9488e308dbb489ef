package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const bookingColumns = `id, learner_id, mentor_id, topic, start_at, end_at, status,
	denial_reason, meeting_link, created_at, updated_at`

// CreateBooking inserts a new booking request. A partial unique index on
// (mentor_id, start_at) for live bookings turns slot races into ErrDuplicate.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		booking.ID,
		booking.LearnerID,
		booking.MentorID,
		booking.Topic,
		booking.Start.UTC().Format(time.RFC3339),
		booking.End.UTC().Format(time.RFC3339),
		booking.Status,
		booking.DenialReason,
		booking.MeetingLink,
		booking.CreatedAt.UTC().Format(time.RFC3339),
		booking.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapWriteError(err, r.mapper)
	}

	return nil
}

// UpdateBooking rewrites a booking row.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE bookings
		SET status = ?, denial_reason = ?, meeting_link = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		booking.Status,
		booking.DenialReason,
		booking.MeetingLink,
		booking.UpdatedAt.UTC().Format(time.RFC3339),
		booking.ID,
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

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	booking, err := scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	return booking, nil
}

// ListBookings returns bookings matching the filter, newest first.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`

	var conditions []string
	var args []interface{}
	if filter.LearnerID != "" {
		conditions = append(conditions, "learner_id = ?")
		args = append(args, filter.LearnerID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, "mentor_id = ?")
		args = append(args, filter.MentorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return bookings, nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&booking.ID,
		&booking.LearnerID,
		&booking.MentorID,
		&booking.Topic,
		&startStr,
		&endStr,
		&booking.Status,
		&booking.DenialReason,
		&booking.MeetingLink,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if booking.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if booking.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if booking.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return booking, nil
}
