package service

import (
	"context"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	items    domain.ItemRepository
	users    domain.UserRepository
	bookings domain.BookingRepository
	comments domain.CommentRepository
	requests domain.RequestRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewItemService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *ItemService {
	return &ItemService{
		items:    repo,
		users:    repo,
		bookings: repo,
		comments: repo,
		requests: repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, domain.Validation("item name must not be blank")
	}

	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	// A reference to an unknown request is dropped, not an error.
	if item.RequestID != nil {
		if _, err := s.requests.GetRequest(ctx, *item.RequestID); err != nil {
			if !domain.IsNotFound(err) {
				return nil, err
			}
			item.RequestID = nil
		}
	}

	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	item.Comments = []models.Comment{}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("item created")
	return item, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, itemID, ownerID int64, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.Forbidden("only the owner can edit item %d", itemID)
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		item.Name = *patch.Name
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	item.Comments = []models.Comment{}
	return item, nil
}

// GetItem returns the item with its comments. Last/next approved bookings are
// attached only when the requesting user owns the item.
func (s *ItemService) GetItem(ctx context.Context, itemID, requestingUserID int64) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListCommentsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.Comments = comments
	if item.Comments == nil {
		item.Comments = []models.Comment{}
	}

	if item.OwnerID == requestingUserID {
		if err := s.attachBookings(ctx, item); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *ItemService) ListOwnerItems(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	items, err := s.items.ListItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	commentsByItem, err := s.comments.ListCommentsForItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		item.Comments = commentsByItem[item.ID]
		if item.Comments == nil {
			item.Comments = []models.Comment{}
		}
		if err := s.attachBookings(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// SearchItems returns available items matching text; blank text yields an
// empty list, not the whole catalog.
func (s *ItemService) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}
	items, err := s.items.SearchItems(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.Comments = []models.Comment{}
	}
	return items, nil
}

func (s *ItemService) AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.Validation("comment text must not be blank")
	}

	has, err := s.bookings.HasFinishedBooking(ctx, itemID, authorID, s.now())
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, domain.Validation("user doesn't have finished bookings for this item")
	}

	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	comment := &models.Comment{Text: text, ItemID: itemID, AuthorID: authorID, AuthorName: author.Name}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.publishComment(comment)
	return comment, nil
}

func (s *ItemService) attachBookings(ctx context.Context, item *models.Item) error {
	now := s.now()

	last, err := s.bookings.LastBooking(ctx, item.ID, now)
	if err != nil {
		return err
	}
	next, err := s.bookings.NextBooking(ctx, item.ID, now)
	if err != nil {
		return err
	}

	item.LastBooking = last.Short()
	item.NextBooking = next.Short()
	return nil
}

func (s *ItemService) publishComment(comment *models.Comment) {
	if s.eventBus == nil {
		return
	}
	payload := events.CommentEventPayload{
		CommentID: comment.ID,
		ItemID:    comment.ItemID,
		AuthorID:  comment.AuthorID,
	}
	if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
		s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("publish event error")
	}
}
