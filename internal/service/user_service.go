package service

import (
	"context"
	"regexp"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// emailPattern is compiled once at startup; services share it.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, domain.Validation("name must not be blank")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.Conflict("email already registered: %s", email)
	}

	user := &models.User{Name: name, Email: email}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateUser applies a partial patch; blank fields keep their stored values.
func (s *UserService) UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" {
		user.Name = name
	}
	if email != "" && email != user.Email {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		taken, err := s.repo.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.Conflict("email already registered: %s", email)
		}
		user.Email = email
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func validateEmail(email string) error {
	if email == "" {
		return domain.Validation("email must not be blank")
	}
	if !emailPattern.MatchString(email) {
		return domain.Validation("malformed email: %s", email)
	}
	return nil
}
