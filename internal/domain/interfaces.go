package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
	ListItemsByRequests(ctx context.Context, requestIDs []int64) (map[int64][]models.ItemShort, error)
}

type BookingRepository interface {
	// CreateBooking re-checks availability and window overlap inside the
	// insert transaction and returns a ConflictError on overlap.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
	ListBookingsByBooker(ctx context.Context, bookerID int64, state string, now time.Time, from, size int) ([]*models.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID int64, state string, now time.Time, from, size int) ([]*models.Booking, error)
	LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	HasFinishedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListCommentsForItem(ctx context.Context, itemID int64) ([]models.Comment, error)
	ListCommentsForItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, request *models.ItemRequest) error
	GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	ListRequestsByOthers(ctx context.Context, requesterID int64, from, size int) ([]*models.ItemRequest, error)
}

// Repository is the full store surface; *database.DB implements it.
type Repository interface {
	UserRepository
	ItemRepository
	BookingRepository
	CommentRepository
	RequestRepository
}

type UserService interface {
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID, ownerID int64, patch models.ItemPatch) (*models.Item, error)
	GetItem(ctx context.Context, itemID, requestingUserID int64) (*models.Item, error)
	ListOwnerItems(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
	AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID, actingUserID int64) (*models.Booking, error)
	ListBookerBookings(ctx context.Context, bookerID int64, state string, from, size int) ([]*models.Booking, error)
	ListOwnerBookings(ctx context.Context, ownerID int64, state string, from, size int) ([]*models.Booking, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)
}

type RequestService interface {
	CreateRequest(ctx context.Context, requesterID int64, description string) (*models.ItemRequest, error)
	ListOwnRequests(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	ListOtherRequests(ctx context.Context, requesterID int64, from, size int) ([]*models.ItemRequest, error)
	GetRequest(ctx context.Context, requesterID, requestID int64) (*models.ItemRequest, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimiter counts requests per key over a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
