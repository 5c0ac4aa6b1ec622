package models

import "time"

// ItemRequest is a user's ask for an item nobody has listed yet. Items listed
// against it are derived at read time from Item.RequestID.
type ItemRequest struct {
	ID          int64       `json:"id"`
	Description string      `json:"description"`
	RequesterID int64       `json:"requester_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Items       []ItemShort `json:"items"`
}
