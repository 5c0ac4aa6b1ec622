package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO comments (text, item_id, author_id, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, comment.Text, comment.ItemID, comment.AuthorID, now)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	comment.CreatedAt = now
	return nil
}

func (db *DB) ListCommentsForItem(ctx context.Context, itemID int64) ([]models.Comment, error) {
	byItem, err := db.ListCommentsForItems(ctx, []int64{itemID})
	if err != nil {
		return nil, err
	}
	return byItem[itemID], nil
}

func (db *DB) ListCommentsForItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error) {
	result := make(map[int64][]models.Comment)
	if len(itemIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT c.id, c.text, c.item_id, c.author_id, u.name, c.created_at
	    FROM comments c
	    JOIN users u ON u.id = c.author_id
	    WHERE c.item_id IN (%s) ORDER BY c.id`, placeholders)

	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		result[c.ItemID] = append(result[c.ItemID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return result, nil
}
