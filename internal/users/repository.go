package users

import (
	"context"
	"errors"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already taken")
	ErrDuplicateIdentity   = errors.New("external identity already linked")
	ErrDuplicateMembership = errors.New("user is already a member of this team")
	ErrMembershipNotFound  = errors.New("team membership not found")
)

// Provider names for external identities.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// Patch lists the user fields to change; nil fields are left untouched.
type Patch struct {
	Name          *string
	Email         *string
	PasswordHash  *string
	Role          *roles.GlobalRole
	EmailVerified *bool
	GithubID      *string
	GoogleID      *string
	ActiveTeam    *string // empty string clears
	Avatar        *string
	StripeID      *string
	PaymentMethod **models.PaymentMethod // pointer to nil clears
	Subscription  *models.Subscription
}

// Filter narrows Query results.
type Filter struct {
	Name string
	Role roles.GlobalRole
}

// QueryOptions controls sorting and pagination. Page starts at 1.
type QueryOptions struct {
	SortBy string // "field:asc" or "field:desc"
	Limit  int
	Page   int
}

// QueryResult is a page of users.
type QueryResult struct {
	Results      []*models.User `json:"results"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int64          `json:"totalResults"`
}

// Repository defines persistence operations for users. Every method is a single
// write or read of one user record.
type Repository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByStripeID(ctx context.Context, stripeID string) (*models.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	Query(ctx context.Context, f Filter, opts QueryOptions) (*QueryResult, error)
	Update(ctx context.Context, id string, p Patch) (*models.User, error)
	Delete(ctx context.Context, id string) error

	// AddTeam appends a membership record; ErrDuplicateMembership when one exists.
	AddTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error)
	// UpdateTeam overwrites name and role of an existing membership record.
	UpdateTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error)
	// RemoveTeam drops the membership record (if any) and clears activeTeam when it pointed there.
	RemoveTeam(ctx context.Context, userID, teamID string) (*models.User, error)
}

func normalizeOptions(opts QueryOptions) QueryOptions {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	return opts
}

func totalPages(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}
