package users

import (
	"context"
	"errors"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// CustomerCreator manages the billing customer that every account owns.
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, name, email string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
}

// CreateInput describes a new account.
type CreateInput struct {
	Name          string
	Email         string
	Password      string
	Role          roles.GlobalRole
	EmailVerified bool
	GithubID      string
	GoogleID      string
}

// Service encapsulates user-related business logic
type Service struct {
	repo      Repository
	hasher    PasswordHasher
	customers CustomerCreator
}

func NewService(r Repository, h PasswordHasher, c CustomerCreator) *Service {
	return &Service{repo: r, hasher: h, customers: c}
}

// Repo exposes the underlying repository to collaborating services.
func (s *Service) Repo() Repository { return s.repo }

// CreateWithBilling creates the billing customer first and then the user. When the
// user write fails the customer is deleted again.
func (s *Service) CreateWithBilling(ctx context.Context, in CreateInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apierr.Conflict("Email already taken")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apierr.Internal(err)
	}
	if err := credentials.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = roles.RoleUser
	}
	if !role.Valid() {
		return nil, apierr.Validation("invalid role")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	customerID, err := s.customers.CreateCustomer(ctx, in.Name, email)
	if err != nil {
		return nil, apierr.External("Failed to create billing customer", err)
	}
	u, err := s.repo.Create(ctx, &models.User{
		Name:          in.Name,
		Email:         email,
		PasswordHash:  hash,
		GithubID:      in.GithubID,
		GoogleID:      in.GoogleID,
		Role:          role,
		EmailVerified: in.EmailVerified,
		Teams:         []models.TeamMembership{},
		StripeID:      customerID,
		Subscription:  models.Subscription{SubscriptionType: models.FreeTier},
	})
	if err != nil {
		if derr := s.customers.DeleteCustomer(ctx, customerID); derr != nil {
			logger.Warnf("users: orphaned billing customer %s: %v", customerID, derr)
		}
		return nil, TranslateError(err)
	}
	logger.Infof("users: created user %s", u.ID)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, TranslateError(err)
	}
	return u, nil
}

func (s *Service) Query(ctx context.Context, f Filter, opts QueryOptions) (*QueryResult, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, apierr.Validation("invalid role")
	}
	res, err := s.repo.Query(ctx, f, opts)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return res, nil
}

// SetAvatar stores the object key of the user's avatar.
func (s *Service) SetAvatar(ctx context.Context, id, key string) (*models.User, error) {
	u, err := s.repo.Update(ctx, id, Patch{Avatar: &key})
	if err != nil {
		return nil, TranslateError(err)
	}
	return u, nil
}

// TranslateError maps repository sentinels onto API errors.
func TranslateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apierr.NotFound("User not found")
	case errors.Is(err, ErrDuplicateEmail):
		return apierr.Conflict("Email already taken")
	case errors.Is(err, ErrDuplicateIdentity):
		return apierr.Conflict("Account already linked")
	case errors.Is(err, ErrDuplicateMembership):
		return apierr.Conflict("User is already a part of this team")
	case errors.Is(err, ErrMembershipNotFound):
		return apierr.NotFound("Team not found")
	}
	return apierr.Internal(err)
}
