package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingColumns = `b.id, b.start_ts, b.end_ts, b.item_id, b.booker_id, b.status,
	b.created_at, b.updated_at, i.name, i.owner_id, u.name`

const bookingJoin = `FROM bookings b
	JOIN items i ON i.id = b.item_id
	JOIN users u ON u.id = b.booker_id`

// CreateBooking inserts a WAITING booking. Availability and window overlap are
// re-checked inside the transaction so two competing creates cannot both pass
// the check before either commits.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var available bool
	err = tx.QueryRowContext(ctx, `SELECT available FROM items WHERE id = ?`, booking.ItemID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("no such item: %d", booking.ItemID)
	}
	if err != nil {
		return fmt.Errorf("failed to check item in tx: %w", err)
	}
	if !available {
		return domain.Validation("item is unavailable: %d", booking.ItemID)
	}

	// An existing non-rejected booking conflicts when its start or end falls
	// within the new window, bounds inclusive.
	var overlapping int
	queryOverlap := `SELECT COUNT(*) FROM bookings
	    WHERE item_id = ? AND status != ?
	    AND ((start_ts >= ? AND start_ts <= ?) OR (end_ts >= ? AND end_ts <= ?))`
	start := booking.Start.UTC()
	end := booking.End.UTC()
	err = tx.QueryRowContext(ctx, queryOverlap, booking.ItemID, models.StatusRejected,
		start, end, start, end).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return domain.Conflict("booking time overlaps an existing booking")
	}

	now := time.Now().UTC()
	queryInsert := `INSERT INTO bookings (start_ts, end_ts, item_id, booker_id, status, created_at, updated_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		start, end, booking.ItemID, booking.BookerID, models.StatusWaiting, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Start = start
	booking.End = end
	booking.Status = models.StatusWaiting
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoin + ` WHERE b.id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no such booking: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFound("no such booking: %d", id)
	}
	return nil
}

func (db *DB) ListBookingsByBooker(ctx context.Context, bookerID int64, state string, now time.Time, from, size int) ([]*models.Booking, error) {
	return db.listBookings(ctx, `b.booker_id = ?`, bookerID, state, now, from, size)
}

func (db *DB) ListBookingsByOwner(ctx context.Context, ownerID int64, state string, now time.Time, from, size int) ([]*models.Booking, error) {
	return db.listBookings(ctx, `i.owner_id = ?`, ownerID, state, now, from, size)
}

func (db *DB) listBookings(ctx context.Context, scope string, scopeID int64, state string, now time.Time, from, size int) ([]*models.Booking, error) {
	where := scope
	args := []interface{}{scopeID}
	now = now.UTC()

	switch state {
	case models.StateAll:
	case models.StateCurrent:
		where += ` AND b.start_ts <= ? AND b.end_ts > ?`
		args = append(args, now, now)
	case models.StatePast:
		where += ` AND b.end_ts < ?`
		args = append(args, now)
	case models.StateFuture:
		where += ` AND b.start_ts > ?`
		args = append(args, now)
	case models.StateWaiting, models.StateApproved, models.StateRejected:
		where += ` AND b.status = ?`
		args = append(args, state)
	default:
		return nil, domain.Validation("unknown state: %s", state)
	}

	query := `SELECT ` + bookingColumns + ` ` + bookingJoin + `
	    WHERE ` + where + ` ORDER BY b.start_ts DESC LIMIT ? OFFSET ?`
	args = append(args, size, from)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// LastBooking returns the approved booking with the latest start not after
// now, or nil when the item has none.
func (db *DB) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoin + `
	    WHERE b.item_id = ? AND b.status = ? AND b.start_ts <= ?
	    ORDER BY b.start_ts DESC LIMIT 1`
	return db.singleBooking(ctx, query, itemID, models.StatusApproved, now.UTC())
}

// NextBooking returns the approved booking with the earliest start after now,
// or nil when the item has none.
func (db *DB) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoin + `
	    WHERE b.item_id = ? AND b.status = ? AND b.start_ts > ?
	    ORDER BY b.start_ts ASC LIMIT 1`
	return db.singleBooking(ctx, query, itemID, models.StatusApproved, now.UTC())
}

func (db *DB) singleBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) HasFinishedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE item_id = ? AND booker_id = ? AND end_ts < ?`
	err := db.QueryRowContext(ctx, query, itemID, bookerID, now.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check finished bookings: %w", err)
	}
	return count > 0, nil
}

func (db *DB) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingJoin + ` ORDER BY b.start_ts DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.Start, &b.End, &b.ItemID, &b.BookerID, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &b.ItemName, &b.ItemOwnerID, &b.BookerName,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
