package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (name, description, available, owner_id, request_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()

	var requestID sql.NullInt64
	if item.RequestID != nil {
		requestID = sql.NullInt64{Int64: *item.RequestID, Valid: true}
	}

	result, err := db.ExecContext(ctx, query,
		item.Name, item.Description, item.Available, item.OwnerID, requestID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT id, name, description, available, owner_id, request_id, created_at, updated_at
	          FROM items WHERE id = ?`
	item, err := scanItem(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no such item: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		item.Name, item.Description, item.Available, now, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFound("no such item: %d", item.ID)
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	query := `SELECT id, name, description, available, owner_id, request_id, created_at, updated_at
	          FROM items WHERE owner_id = ? ORDER BY id`
	return db.queryItems(ctx, query, ownerID)
}

// SearchItems returns available items whose name or description contains text,
// case-insensitive. Blank text is handled by the service layer.
func (db *DB) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	pattern := "%" + strings.ToLower(text) + "%"
	query := `SELECT id, name, description, available, owner_id, request_id, created_at, updated_at
	          FROM items
	          WHERE available = 1 AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)
	          ORDER BY id`
	return db.queryItems(ctx, query, pattern, pattern)
}

func (db *DB) ListItemsByRequests(ctx context.Context, requestIDs []int64) (map[int64][]models.ItemShort, error) {
	result := make(map[int64][]models.ItemShort)
	if len(requestIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(requestIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT id, name, description, available, request_id
	          FROM items WHERE request_id IN (%s) ORDER BY id`, placeholders)

	args := make([]interface{}, len(requestIDs))
	for i, id := range requestIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var short models.ItemShort
		if err := rows.Scan(&short.ID, &short.Name, &short.Description, &short.Available, &short.RequestID); err != nil {
			return nil, fmt.Errorf("failed to scan item projection: %w", err)
		}
		result[short.RequestID] = append(result[short.RequestID], short)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item projections: %w", err)
	}
	return result, nil
}

func (db *DB) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	var requestID sql.NullInt64
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Available,
		&item.OwnerID, &requestID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if requestID.Valid {
		item.RequestID = &requestID.Int64
	}
	return item, nil
}
