// Package teams persists teams together with their embedded member list and
// pending invitations.
package teams

import (
	"context"
	"errors"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
)

var (
	ErrNotFound            = errors.New("team not found")
	ErrMemberNotFound      = errors.New("team user not found")
	ErrDuplicateMember     = errors.New("user is already a member of this team")
	ErrAlreadyMember       = errors.New("email is already a part of the team")
	ErrDuplicateInvitation = errors.New("invitation has already been sent to this email")
	ErrInvitationNotFound  = errors.New("invitation not found")
)

// UserPatch lists the member fields to change; nil fields are left untouched.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *roles.TeamRole
}

// Repository defines persistence operations for teams. Each method is a single
// atomic write or read of one team record.
type Repository interface {
	Create(ctx context.Context, t *models.Team) (*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	Rename(ctx context.Context, id, name string) (*models.Team, error)
	// Delete removes the team and returns the record as it was.
	Delete(ctx context.Context, id string) (*models.Team, error)

	AddUser(ctx context.Context, teamID string, u models.TeamUser) (*models.Team, error)
	UpdateUser(ctx context.Context, teamID, userID string, p UserPatch) (*models.Team, error)
	RemoveUser(ctx context.Context, teamID, userID string) (*models.Team, error)

	// AddInvitation fails with ErrAlreadyMember or ErrDuplicateInvitation when the
	// email is already present on either list.
	AddInvitation(ctx context.Context, teamID string, inv models.Invitation) (*models.Team, error)
	// RemoveInvitation returns the team as it was before the removal.
	RemoveInvitation(ctx context.Context, teamID, invitationID string) (*models.Team, error)
}
