package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/user/domain"
	"github.com/ridloal/agri-traceability/internal/user/repository"
)

const maxDisplayNameLength = 120

var ErrValidation = errors.New("validation failed")

type UserService interface {
	UpsertProfile(ctx context.Context, caller identity.Principal, req domain.UpsertProfileRequest) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) UpsertProfile(ctx context.Context, caller identity.Principal, req domain.UpsertProfileRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display_name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display_name must be at most %d characters", ErrValidation, maxDisplayNameLength)
	}

	var phone *string
	if req.PhoneNumber != nil {
		if p := strings.TrimSpace(*req.PhoneNumber); p != "" {
			phone = &p
		}
	}

	user := &domain.User{
		ID:          caller.SubjectID,
		DisplayName: name,
		Role:        caller.Role,
		PhoneNumber: phone,
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		logger.Error("UpsertProfile: failed to save user", err, logger.Fields{"user_id": caller.SubjectID})
		return nil, fmt.Errorf("could not save profile: %w", err)
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, strings.TrimSpace(id))
}
