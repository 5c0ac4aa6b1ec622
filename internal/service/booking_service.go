package service

import (
	"context"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	bookings domain.BookingRepository
	users    domain.UserRepository
	items    domain.ItemRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings: repo,
		users:    repo,
		items:    repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error) {
	booker, err := s.users.GetUser(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !start.Before(end) {
		return nil, domain.Validation("wrong booking time: start must precede end")
	}
	if !item.Available {
		return nil, domain.Validation("item is unavailable: %d", itemID)
	}
	if item.OwnerID == bookerID {
		return nil, domain.Forbidden("booker can't be owner")
	}

	booking := &models.Booking{Start: start, End: end, ItemID: itemID, BookerID: bookerID}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	booking.ItemName = item.Name
	booking.ItemOwnerID = item.OwnerID
	booking.BookerName = booker.Name

	s.publishEvent(events.EventBookingCreated, booking)
	return booking, nil
}

// SetBookingStatus applies the single WAITING -> APPROVED/REJECTED transition.
// Decided bookings cannot be decided again, even to the same value.
func (s *BookingService) SetBookingStatus(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ItemOwnerID != actingUserID {
		return nil, domain.Forbidden("only the item owner can approve or reject booking %d", bookingID)
	}

	if booking.Status != models.StatusWaiting {
		return nil, domain.Conflict("booking status is already set: %s", booking.Status)
	}

	target := models.StatusRejected
	eventType := events.EventBookingRejected
	if approve {
		target = models.StatusApproved
		eventType = events.EventBookingApproved
	}

	if err := s.bookings.UpdateBookingStatus(ctx, bookingID, target); err != nil {
		return nil, err
	}
	booking.Status = target

	s.publishEvent(eventType, booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, actingUserID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actingUserID != booking.BookerID && actingUserID != booking.ItemOwnerID {
		return nil, domain.Forbidden("user must be owner or booker of booking %d", bookingID)
	}
	return booking, nil
}

func (s *BookingService) ListBookerBookings(ctx context.Context, bookerID int64, state string, from, size int) ([]*models.Booking, error) {
	parsed, err := s.prepareListQuery(ctx, bookerID, state, from, size)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByBooker(ctx, bookerID, parsed, s.now(), from, size)
}

func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID int64, state string, from, size int) ([]*models.Booking, error) {
	parsed, err := s.prepareListQuery(ctx, ownerID, state, from, size)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByOwner(ctx, ownerID, parsed, s.now(), from, size)
}

func (s *BookingService) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.bookings.ListAllBookings(ctx)
}

func (s *BookingService) prepareListQuery(ctx context.Context, userID int64, state string, from, size int) (string, error) {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", domain.NotFound("no such user: %d", userID)
	}

	parsed, err := models.ParseState(state)
	if err != nil {
		return "", domain.Validation("%s", err.Error())
	}
	if from < 0 {
		return "", domain.Validation("from must not be negative")
	}
	if size <= 0 {
		return "", domain.Validation("size must be positive")
	}
	return parsed, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		BookerID:  booking.BookerID,
		Status:    booking.Status,
		Start:     booking.Start,
		End:       booking.End,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
