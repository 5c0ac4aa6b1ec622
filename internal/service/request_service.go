package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	requests domain.RequestRepository
	users    domain.UserRepository
	items    domain.ItemRepository
	logger   *zerolog.Logger
}

func NewRequestService(repo domain.Repository, logger *zerolog.Logger) *RequestService {
	return &RequestService{requests: repo, users: repo, items: repo, logger: logger}
}

func (s *RequestService) CreateRequest(ctx context.Context, requesterID int64, description string) (*models.ItemRequest, error) {
	if strings.TrimSpace(description) == "" {
		return nil, domain.Validation("request description must not be blank")
	}
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}

	request := &models.ItemRequest{Description: description, RequesterID: requesterID}
	if err := s.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	request.Items = []models.ItemShort{}

	s.logger.Info().Int64("request_id", request.ID).Int64("requester_id", requesterID).Msg("item request created")
	return request, nil
}

func (s *RequestService) ListOwnRequests(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListRequestsByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, requests)
}

func (s *RequestService) ListOtherRequests(ctx context.Context, requesterID int64, from, size int) ([]*models.ItemRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}
	if from < 0 {
		return nil, domain.Validation("from must not be negative")
	}
	if size <= 0 {
		return nil, domain.Validation("size must be positive")
	}

	requests, err := s.requests.ListRequestsByOthers(ctx, requesterID, from, size)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, requests)
}

func (s *RequestService) GetRequest(ctx context.Context, requesterID, requestID int64) (*models.ItemRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	enriched, err := s.enrich(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return enriched[0], nil
}

func (s *RequestService) requireUser(ctx context.Context, userID int64) error {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NotFound("no such user: %d", userID)
	}
	return nil
}

// enrich attaches the derived list of items offered against each request.
func (s *RequestService) enrich(ctx context.Context, requests []*models.ItemRequest) ([]*models.ItemRequest, error) {
	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}

	itemsByRequest, err := s.items.ListItemsByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range requests {
		r.Items = itemsByRequest[r.ID]
		if r.Items == nil {
			r.Items = []models.ItemShort{}
		}
	}
	return requests, nil
}
