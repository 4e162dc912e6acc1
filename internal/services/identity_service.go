package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/freelance-crm-api/internal/auth"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = fmt.Errorf("no authenticated principal: %w", apierrors.ErrUnauthorizedKind)
	ErrUserNotFound    = fmt.Errorf("user %w", apierrors.ErrNotFoundKind)
)

// IdentityService maps auth provider principals onto local users.
type IdentityService struct {
	userRepo repository.UserRepository
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
	}
}

// Resolve returns the user for a principal, creating it on first sight.
func (s *IdentityService) Resolve(ctx context.Context, principal auth.Principal) (*models.User, error) {
	if principal.IsZero() {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.FindByExternalID(ctx, principal.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user = &models.User{
		ExternalID: principal.ExternalID,
		Email:      principal.Email,
		Name:       principal.Name,
		ImageURL:   principal.ImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent request may have created the same user first
		if existing, findErr := s.userRepo.FindByExternalID(ctx, principal.ExternalID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// SyncUser applies a lifecycle event from the auth provider. Unknown event types are ignored.
func (s *IdentityService) SyncUser(ctx context.Context, event auth.WebhookEvent) error {
	switch event.Type {
	case auth.EventUserCreated, auth.EventUserUpdated:
		return s.upsertProfile(ctx, event.Data.Principal())
	case auth.EventUserDeleted:
		err := s.DeleteUser(ctx, event.Data.ID)
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	default:
		return nil
	}
}

// DeleteUser removes a user and all data they own.
func (s *IdentityService) DeleteUser(ctx context.Context, externalID string) error {
	user, err := s.userRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.userRepo.DeleteWithData(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func (s *IdentityService) upsertProfile(ctx context.Context, principal auth.Principal) error {
	if principal.IsZero() {
		return apierrors.NewValidationError("data.id", "is required")
	}

	user, err := s.userRepo.FindByExternalID(ctx, principal.ExternalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_, err = s.Resolve(ctx, principal)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.Email = principal.Email
	user.Name = principal.Name
	user.ImageURL = principal.ImageURL
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}
