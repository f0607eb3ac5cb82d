// Package membership keeps the two copies of every (user, team) membership record
// in step. The team side is written first; user-side writes follow one per member.
package membership

import (
	"context"
	"errors"
	"strings"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// CustomerGateway keeps the billing customer in line with the account.
type CustomerGateway interface {
	UpdateCustomer(ctx context.Context, customerID, name, email string) error
	DeleteCustomer(ctx context.Context, customerID string) error
}

// Notifier delivers the emails produced by membership operations.
type Notifier interface {
	SendTeamInvitation(ctx context.Context, to string, team *models.Team, invitationID string) error
	SendEmailVerification(ctx context.Context, to, token string) error
}

// VerificationIssuer creates an email-verification token for a user.
type VerificationIssuer interface {
	IssueEmailVerification(ctx context.Context, u *models.User) (string, error)
}

type Deps struct {
	Users        users.Repository
	Teams        teams.Repository
	Customers    CustomerGateway
	Notifier     Notifier
	Verification VerificationIssuer
	Hasher       users.PasswordHasher
}

type Synchronizer struct {
	users        users.Repository
	teams        teams.Repository
	customers    CustomerGateway
	notifier     Notifier
	verification VerificationIssuer
	hasher       users.PasswordHasher
}

func NewSynchronizer(d Deps) *Synchronizer {
	return &Synchronizer{
		users:        d.Users,
		teams:        d.Teams,
		customers:    d.Customers,
		notifier:     d.Notifier,
		verification: d.Verification,
		hasher:       d.Hasher,
	}
}

func teamError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, teams.ErrNotFound):
		return apierr.NotFound("Team not found")
	case errors.Is(err, teams.ErrMemberNotFound):
		return apierr.NotFound("Team user not found")
	case errors.Is(err, teams.ErrDuplicateMember):
		return apierr.Conflict("User is already a part of this team")
	case errors.Is(err, teams.ErrAlreadyMember):
		return apierr.Conflict("Email is already a part of the team")
	case errors.Is(err, teams.ErrDuplicateInvitation):
		return apierr.Conflict("Invitation has already been sent to this email")
	case errors.Is(err, teams.ErrInvitationNotFound):
		return apierr.NotFound("Invitation not found")
	}
	return apierr.Internal(err)
}

func validTeamName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.Validation("name is required")
	}
	return name, nil
}

// CreateTeam creates a team owned by caller and records the membership on the
// caller. If the user-side write fails the team is removed again.
func (s *Synchronizer) CreateTeam(ctx context.Context, caller *models.User, name string) (*Outcome, error) {
	name, err := validTeamName(name)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Create(ctx, &models.Team{
		Name:  name,
		Owner: caller.ID,
		Users: []models.TeamUser{{
			ID:    caller.ID,
			Name:  caller.Name,
			Email: caller.Email,
			Role:  roles.TeamOwner,
		}},
		Invitations: []models.Invitation{},
	})
	if err != nil {
		return nil, teamError(err)
	}
	u, err := s.users.AddTeam(ctx, caller.ID, models.TeamMembership{ID: team.ID, Name: team.Name, Role: roles.TeamOwner})
	if err != nil {
		if _, derr := s.teams.Delete(ctx, team.ID); derr != nil {
			logger.Errorf("membership: orphaned team %s after failed owner write: %v", team.ID, derr)
		}
		return nil, users.TranslateError(err)
	}
	logger.Infof("membership: user %s created team %s", caller.ID, team.ID)
	return &Outcome{User: u, Team: team}, nil
}

// SetActiveTeam points the caller's active team at one of their own teams.
func (s *Synchronizer) SetActiveTeam(ctx context.Context, caller *models.User, teamID string) (*models.User, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, teamError(err)
	}
	if caller.Membership(teamID) == nil {
		return nil, apierr.Forbidden("User is not a part of this team")
	}
	u, err := s.users.Update(ctx, caller.ID, users.Patch{ActiveTeam: &teamID})
	if err != nil {
		return nil, users.TranslateError(err)
	}
	return u, nil
}

func (s *Synchronizer) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, teamError(err)
	}
	return t, nil
}

// LeaveTeam removes the caller from a team. Owners cannot leave.
func (s *Synchronizer) LeaveTeam(ctx context.Context, caller *models.User, teamID string) (*Outcome, error) {
	return s.removeMember(ctx, teamID, caller.ID)
}

// RemoveMember removes userID from the team. The owner cannot be removed.
func (s *Synchronizer) RemoveMember(ctx context.Context, teamID, userID string) (*Outcome, error) {
	return s.removeMember(ctx, teamID, userID)
}

func (s *Synchronizer) removeMember(ctx context.Context, teamID, userID string) (*Outcome, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, teamError(err)
	}
	m := team.User(userID)
	if m == nil {
		return nil, apierr.NotFound("Team user not found")
	}
	if team.IsOwner(userID) {
		return nil, apierr.Forbidden("Cannot delete team owner")
	}
	team, err = s.teams.RemoveUser(ctx, teamID, userID)
	if err != nil {
		return nil, teamError(err)
	}
	out := &Outcome{Team: team}
	u, err := s.users.RemoveTeam(ctx, userID, teamID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		out.warn("user %s no longer exists", userID)
	case err != nil:
		return nil, apierr.Internal(err)
	default:
		out.User = u
	}
	return out, nil
}

// UpdateMemberRole changes the role of a non-owner member on both sides.
func (s *Synchronizer) UpdateMemberRole(ctx context.Context, teamID, userID string, role roles.TeamRole) (*Outcome, error) {
	if !role.Assignable() {
		return nil, apierr.Validation("role must be one of teamUser, teamAdmin")
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, teamError(err)
	}
	if team.User(userID) == nil {
		return nil, apierr.NotFound("Team user not found")
	}
	if team.IsOwner(userID) {
		return nil, apierr.Forbidden("Cannot change the role of the team owner")
	}
	team, err = s.teams.UpdateUser(ctx, teamID, userID, teams.UserPatch{Role: &role})
	if err != nil {
		return nil, teamError(err)
	}
	u, err := s.syncMembership(ctx, userID, models.TeamMembership{ID: team.ID, Name: team.Name, Role: role})
	if err != nil {
		return nil, users.TranslateError(err)
	}
	return &Outcome{User: u, Team: team}, nil
}

// syncMembership overwrites the user-side record, recreating it when it has gone missing.
func (s *Synchronizer) syncMembership(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error) {
	u, err := s.users.UpdateTeam(ctx, userID, m)
	if errors.Is(err, users.ErrMembershipNotFound) {
		logger.Warnf("membership: restoring missing record of team %s on user %s", m.ID, userID)
		return s.users.AddTeam(ctx, userID, m)
	}
	return u, err
}

// RenameTeam renames the team and then propagates the name to every member.
// Member failures are collected in the outcome; the rename itself stands.
func (s *Synchronizer) RenameTeam(ctx context.Context, caller *models.User, teamID, name string) (*Outcome, error) {
	name, err := validTeamName(name)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Rename(ctx, teamID, name)
	if err != nil {
		return nil, teamError(err)
	}
	out := &Outcome{User: caller, Team: team}
	for _, member := range team.Users {
		u, err := s.syncMembership(ctx, member.ID, models.TeamMembership{ID: team.ID, Name: team.Name, Role: member.Role})
		if err != nil {
			out.fail("rename_team", member.ID, err)
			continue
		}
		if member.ID == caller.ID {
			out.User = u
		}
	}
	return out, nil
}

// DeleteTeam removes the team and then drops it from every member.
func (s *Synchronizer) DeleteTeam(ctx context.Context, caller *models.User, teamID string) (*Outcome, error) {
	team, err := s.teams.Delete(ctx, teamID)
	if err != nil {
		return nil, teamError(err)
	}
	out := &Outcome{User: caller, Team: team}
	s.dropTeamFromMembers(ctx, out, team, "")
	logger.Infof("membership: team %s deleted", team.ID)
	return out, nil
}

// dropTeamFromMembers removes the team from every member except skip.
func (s *Synchronizer) dropTeamFromMembers(ctx context.Context, out *Outcome, team *models.Team, skip string) {
	for _, member := range team.Users {
		if member.ID == skip {
			continue
		}
		u, err := s.users.RemoveTeam(ctx, member.ID, team.ID)
		if errors.Is(err, users.ErrNotFound) {
			continue
		}
		if err != nil {
			out.fail("delete_team", member.ID, err)
			continue
		}
		if out.User != nil && member.ID == out.User.ID {
			out.User = u
		}
	}
}
