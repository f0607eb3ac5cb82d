package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// InvitationView is what an invitee sees before answering.
type InvitationView struct {
	TeamName   string            `json:"teamName"`
	Invitation models.Invitation `json:"invitation"`
}

// CreateInvitation records a pending invitation and emails the invitee. A failed
// email leaves the invitation in place and is reported as a warning.
func (s *Synchronizer) CreateInvitation(ctx context.Context, teamID, email string, role roles.TeamRole) (*Outcome, error) {
	if !role.Assignable() {
		return nil, apierr.Validation("role must be one of teamUser, teamAdmin")
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apierr.Validation("email is required")
	}
	inv := models.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	team, err := s.teams.AddInvitation(ctx, teamID, inv)
	if err != nil {
		return nil, teamError(err)
	}
	out := &Outcome{Team: team}
	if err := s.notifier.SendTeamInvitation(ctx, email, team, inv.ID); err != nil {
		out.notifyFailed("team_invitation", err)
	}
	return out, nil
}

func (s *Synchronizer) lookupInvitation(ctx context.Context, caller *models.User, teamID, invitationID string) (*models.Team, *models.Invitation, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, nil, teamError(err)
	}
	inv := team.Invitation(invitationID)
	if inv == nil {
		return nil, nil, apierr.NotFound("Invitation not found")
	}
	if !strings.EqualFold(caller.Email, inv.Email) {
		return nil, nil, apierr.Forbidden("Forbidden")
	}
	return team, inv, nil
}

// GetInvitation returns an invitation addressed to the caller.
func (s *Synchronizer) GetInvitation(ctx context.Context, caller *models.User, teamID, invitationID string) (*InvitationView, error) {
	team, inv, err := s.lookupInvitation(ctx, caller, teamID, invitationID)
	if err != nil {
		return nil, err
	}
	return &InvitationView{TeamName: team.Name, Invitation: *inv}, nil
}

// HandleInvitation accepts or declines an invitation addressed to the caller. The
// invitation is removed first, so only one answer can ever take effect.
func (s *Synchronizer) HandleInvitation(ctx context.Context, caller *models.User, teamID, invitationID string, accepted bool) (*Outcome, error) {
	if _, _, err := s.lookupInvitation(ctx, caller, teamID, invitationID); err != nil {
		return nil, err
	}
	before, err := s.teams.RemoveInvitation(ctx, teamID, invitationID)
	if err != nil {
		return nil, teamError(err)
	}
	inv := before.Invitation(invitationID)
	if !accepted {
		return &Outcome{User: caller}, nil
	}
	if before.User(caller.ID) != nil {
		return nil, apierr.Conflict("User is already a part of this team")
	}

	team, err := s.teams.AddUser(ctx, teamID, models.TeamUser{
		ID:    caller.ID,
		Name:  caller.Name,
		Email: caller.Email,
		Role:  inv.Role,
	})
	if err != nil {
		return nil, teamError(err)
	}
	m := models.TeamMembership{ID: team.ID, Name: team.Name, Role: inv.Role}
	u, err := s.users.AddTeam(ctx, caller.ID, m)
	if errors.Is(err, users.ErrDuplicateMembership) {
		u, err = s.users.UpdateTeam(ctx, caller.ID, m)
	}
	if err != nil {
		if _, rerr := s.teams.RemoveUser(ctx, teamID, caller.ID); rerr != nil && !errors.Is(rerr, teams.ErrMemberNotFound) {
			logger.Errorf("membership: team %s keeps member %s without a user-side record: %v", teamID, caller.ID, rerr)
		}
		return nil, users.TranslateError(err)
	}
	logger.Infof("membership: user %s joined team %s as %s", caller.ID, teamID, inv.Role)
	return &Outcome{User: u, Team: team}, nil
}

// DeleteInvitation withdraws a pending invitation.
func (s *Synchronizer) DeleteInvitation(ctx context.Context, teamID, invitationID string) (*models.Team, error) {
	before, err := s.teams.RemoveInvitation(ctx, teamID, invitationID)
	if err != nil {
		return nil, teamError(err)
	}
	after := before.Clone()
	kept := after.Invitations[:0]
	for _, inv := range after.Invitations {
		if inv.ID != invitationID {
			kept = append(kept, inv)
		}
	}
	after.Invitations = kept
	return after, nil
}
