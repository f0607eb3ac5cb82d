package membership

import (
	"context"
	"errors"
	"strings"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// ProfileUpdate lists the profile fields to change; nil fields are kept.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile changes the user's profile and copies name and email into every
// team the user belongs to. A new email clears the verified flag and sends a
// verification email.
func (s *Synchronizer) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*Outcome, error) {
	old, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, users.TranslateError(err)
	}

	var patch users.Patch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Validation("name must not be empty")
		}
		patch.Name = &name
	}
	emailChanged := false
	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, apierr.Validation("email must not be empty")
		}
		if email != old.Email {
			if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != userID {
				return nil, apierr.Conflict("Email already taken")
			} else if err != nil && !errors.Is(err, users.ErrNotFound) {
				return nil, apierr.Internal(err)
			}
			if err := s.checkPendingInvitations(ctx, old, email); err != nil {
				return nil, err
			}
			emailChanged = true
			unverified := false
			patch.Email = &email
			patch.EmailVerified = &unverified
		}
	}
	if in.Password != nil {
		if err := credentials.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		patch.PasswordHash = &hash
	}

	u, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		return nil, users.TranslateError(err)
	}
	out := &Outcome{User: u}

	if u.Name != old.Name || emailChanged {
		for _, m := range u.Teams {
			_, err := s.teams.UpdateUser(ctx, m.ID, u.ID, teams.UserPatch{Name: &u.Name, Email: &u.Email})
			if err != nil {
				out.fail("update_profile", m.ID, err)
			}
		}
		if u.StripeID != "" {
			if err := s.customers.UpdateCustomer(ctx, u.StripeID, u.Name, u.Email); err != nil {
				out.warn("billing customer %s not updated: %v", u.StripeID, err)
			}
		}
	}
	if emailChanged {
		token, err := s.verification.IssueEmailVerification(ctx, u)
		if err == nil {
			err = s.notifier.SendEmailVerification(ctx, u.Email, token)
		}
		if err != nil {
			out.notifyFailed("email_verification", err)
		}
	}
	return out, nil
}

// checkPendingInvitations refuses an email that is still invited to one of the
// user's teams, since a member and an invitation may not share an address.
func (s *Synchronizer) checkPendingInvitations(ctx context.Context, u *models.User, email string) error {
	for _, m := range u.Teams {
		team, err := s.teams.GetByID(ctx, m.ID)
		if errors.Is(err, teams.ErrNotFound) {
			continue
		}
		if err != nil {
			return apierr.Internal(err)
		}
		if team.InvitationByEmail(email) != nil {
			return apierr.Conflict("Email has a pending invitation to team " + team.Name)
		}
	}
	return nil
}

// DeleteUser removes the user from every team, deleting the teams the user owns,
// then deletes the account and its billing customer. A failing team step aborts
// before the account is deleted, so the call can be repeated.
func (s *Synchronizer) DeleteUser(ctx context.Context, userID string) (*Outcome, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, users.TranslateError(err)
	}
	out := &Outcome{}
	for _, m := range u.Teams {
		if m.Role == roles.TeamOwner {
			team, err := s.teams.Delete(ctx, m.ID)
			if errors.Is(err, teams.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, apierr.Internal(err)
			}
			s.dropTeamFromMembers(ctx, out, team, u.ID)
			continue
		}
		_, err := s.teams.RemoveUser(ctx, m.ID, u.ID)
		if err != nil && !errors.Is(err, teams.ErrNotFound) && !errors.Is(err, teams.ErrMemberNotFound) {
			return nil, apierr.Internal(err)
		}
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return nil, users.TranslateError(err)
	}
	if u.StripeID != "" {
		if err := s.customers.DeleteCustomer(ctx, u.StripeID); err != nil {
			out.warn("billing customer %s not deleted: %v", u.StripeID, err)
		}
	}
	logger.Infof("membership: user %s deleted", u.ID)
	out.User = u
	return out, nil
}
