package models

import "time"

type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	OwnerID     int64  `json:"owner_id"`
	// RequestID links the item to the item request it fulfils, if any.
	RequestID *int64    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Read-time enrichment; only populated for the item's owner.
	LastBooking *ShortBooking `json:"last_booking,omitempty"`
	NextBooking *ShortBooking `json:"next_booking,omitempty"`
	Comments    []Comment     `json:"comments"`
}

// ItemShort is the projection attached to item-request responses.
type ItemShort struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   int64  `json:"request_id"`
}

// ItemPatch carries partial updates; nil fields are left untouched.
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}
