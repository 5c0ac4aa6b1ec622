package models

import "time"

type Booking struct {
	ID       int64     `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	ItemID   int64     `json:"item_id"`
	BookerID int64     `json:"booker_id"`
	Status   string    `json:"status"`

	// Denormalized on read for responses and authorization checks.
	ItemName    string `json:"item_name,omitempty"`
	ItemOwnerID int64  `json:"-"`
	BookerName  string `json:"booker_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortBooking is the minimal projection used for item enrichment.
type ShortBooking struct {
	ID       int64     `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	BookerID int64     `json:"booker_id"`
}

func (b *Booking) Short() *ShortBooking {
	if b == nil {
		return nil
	}
	return &ShortBooking{ID: b.ID, Start: b.Start, End: b.End, BookerID: b.BookerID}
}
