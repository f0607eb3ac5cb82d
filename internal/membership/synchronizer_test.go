package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
)

type fakeCustomers struct {
	updated   map[string]string
	deleted   []string
	updateErr error
}

func (f *fakeCustomers) UpdateCustomer(ctx context.Context, id, name, email string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[id] = name + " <" + email + ">"
	return nil
}

func (f *fakeCustomers) DeleteCustomer(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type sentInvite struct {
	to, teamID, invitationID string
}

type fakeNotifier struct {
	invites       []sentInvite
	verifications map[string]string
	err           error
}

func (f *fakeNotifier) SendTeamInvitation(ctx context.Context, to string, team *models.Team, invitationID string) error {
	if f.err != nil {
		return f.err
	}
	f.invites = append(f.invites, sentInvite{to: to, teamID: team.ID, invitationID: invitationID})
	return nil
}

func (f *fakeNotifier) SendEmailVerification(ctx context.Context, to, token string) error {
	if f.err != nil {
		return f.err
	}
	f.verifications[to] = token
	return nil
}

type fakeVerification struct{}

func (fakeVerification) IssueEmailVerification(ctx context.Context, u *models.User) (string, error) {
	return "verify-" + u.ID, nil
}

// flakyUsers fails user-side membership writes for the listed ids.
type flakyUsers struct {
	*users.MemoryRepository
	failFor map[string]bool
}

var errStore = errors.New("store unavailable")

func (f *flakyUsers) UpdateTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error) {
	if f.failFor[userID] {
		return nil, errStore
	}
	return f.MemoryRepository.UpdateTeam(ctx, userID, m)
}

func (f *flakyUsers) AddTeam(ctx context.Context, userID string, m models.TeamMembership) (*models.User, error) {
	if f.failFor[userID] {
		return nil, errStore
	}
	return f.MemoryRepository.AddTeam(ctx, userID, m)
}

func (f *flakyUsers) RemoveTeam(ctx context.Context, userID, teamID string) (*models.User, error) {
	if f.failFor[userID] {
		return nil, errStore
	}
	return f.MemoryRepository.RemoveTeam(ctx, userID, teamID)
}

type fixture struct {
	sync      *Synchronizer
	users     *flakyUsers
	teams     *teams.MemoryRepository
	customers *fakeCustomers
	notifier  *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     &flakyUsers{MemoryRepository: users.NewMemoryRepository(), failFor: map[string]bool{}},
		teams:     teams.NewMemoryRepository(),
		customers: &fakeCustomers{updated: map[string]string{}},
		notifier:  &fakeNotifier{verifications: map[string]string{}},
	}
	f.sync = NewSynchronizer(Deps{
		Users:        f.users,
		Teams:        f.teams,
		Customers:    f.customers,
		Notifier:     f.notifier,
		Verification: fakeVerification{},
		Hasher:       credentials.NewHasher(bcrypt.MinCost),
	})
	return f
}

func (f *fixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &models.User{
		Name:         name,
		Email:        email,
		Role:         roles.RoleUser,
		StripeID:     "cus_" + name,
		Subscription: models.Subscription{SubscriptionType: models.FreeTier},
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// assertSymmetric checks that both copies of every membership of the given users
// and teams agree, that each team has exactly one owner and that no member is
// also invited.
func (f *fixture) assertSymmetric(t *testing.T, userIDs []string, teamIDs []string) {
	t.Helper()
	ctx := context.Background()
	for _, tid := range teamIDs {
		team, err := f.teams.GetByID(ctx, tid)
		if errors.Is(err, teams.ErrNotFound) {
			for _, uid := range userIDs {
				assert.Nil(t, f.reload(t, uid).Membership(tid), "user %s still lists deleted team %s", uid, tid)
			}
			continue
		}
		require.NoError(t, err)
		owners := 0
		for _, tu := range team.Users {
			if tu.Role == roles.TeamOwner {
				owners++
			}
			m := f.reload(t, tu.ID).Membership(tid)
			require.NotNil(t, m, "user %s lacks membership of %s", tu.ID, tid)
			assert.Equal(t, tu.Role, m.Role)
			assert.Equal(t, team.Name, m.Name)
			assert.Nil(t, team.InvitationByEmail(tu.Email), "member %s is also invited", tu.Email)
		}
		assert.Equal(t, 1, owners, "team %s owners", tid)
		for _, uid := range userIDs {
			if f.reload(t, uid).Membership(tid) != nil {
				assert.NotNil(t, team.User(uid), "team %s lacks member %s", tid, uid)
			}
		}
	}
}

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ann", "a@x.com")

	out, err := f.sync.CreateTeam(context.Background(), a, "Alpha")
	require.NoError(t, err)
	require.Len(t, out.Team.Users, 1)
	assert.Equal(t, models.TeamUser{ID: a.ID, Name: "Ann", Email: "a@x.com", Role: roles.TeamOwner}, out.Team.Users[0])
	assert.Equal(t, a.ID, out.Team.Owner)
	assert.Empty(t, out.Team.Invitations)
	assert.Equal(t, []models.TeamMembership{{ID: out.Team.ID, Name: "Alpha", Role: roles.TeamOwner}}, out.User.Teams)
	f.assertSymmetric(t, []string{a.ID}, []string{out.Team.ID})

	_, err = f.sync.CreateTeam(context.Background(), a, "   ")
	assert.True(t, apierr.Is(err, apierr.KindValidation))
}

func TestCreateTeamRemovesTeamWhenOwnerWriteFails(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ann", "a@x.com")
	f.users.failFor[a.ID] = true

	_, err := f.sync.CreateTeam(context.Background(), a, "Alpha")
	require.Error(t, err)
	assert.Empty(t, f.reload(t, a.ID).Teams)
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	teamID := created.Team.ID

	out, err := f.sync.CreateInvitation(ctx, teamID, "B@x.com", roles.TeamUser)
	require.NoError(t, err)
	require.Len(t, out.Team.Invitations, 1)
	inv := out.Team.Invitations[0]
	assert.Equal(t, "b@x.com", inv.Email)
	assert.Empty(t, out.Warnings)
	require.Len(t, f.notifier.invites, 1)
	assert.Equal(t, sentInvite{to: "b@x.com", teamID: teamID, invitationID: inv.ID}, f.notifier.invites[0])

	b := f.user(t, "Bob", "b@x.com")
	view, err := f.sync.GetInvitation(ctx, b, teamID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", view.TeamName)

	joined, err := f.sync.HandleInvitation(ctx, b, teamID, inv.ID, true)
	require.NoError(t, err)
	assert.Equal(t, roles.TeamUser, joined.Team.User(b.ID).Role)
	assert.Equal(t, models.TeamMembership{ID: teamID, Name: "Alpha", Role: roles.TeamUser}, *joined.User.Membership(teamID))
	assert.Empty(t, joined.Team.Invitations)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	// the invitation is gone, so answering again is a not-found
	_, err = f.sync.HandleInvitation(ctx, b, teamID, inv.ID, true)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestInvitationPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	teamID := created.Team.ID

	_, err = f.sync.CreateInvitation(ctx, teamID, "A@x.com", roles.TeamUser)
	assert.True(t, apierr.Is(err, apierr.KindConflict))
	assert.Equal(t, "Email is already a part of the team", apierr.Message(err))

	_, err = f.sync.CreateInvitation(ctx, teamID, "b@x.com", roles.TeamOwner)
	assert.True(t, apierr.Is(err, apierr.KindValidation))

	_, err = f.sync.CreateInvitation(ctx, teamID, "b@x.com", roles.TeamAdmin)
	require.NoError(t, err)
	_, err = f.sync.CreateInvitation(ctx, teamID, "b@x.com", roles.TeamUser)
	assert.True(t, apierr.Is(err, apierr.KindConflict))
	assert.Equal(t, "Invitation has already been sent to this email", apierr.Message(err))

	_, err = f.sync.CreateInvitation(ctx, "missing", "c@x.com", roles.TeamUser)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestInvitationEmailFailureIsAWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)

	f.notifier.err = errors.New("smtp down")
	out, err := f.sync.CreateInvitation(ctx, created.Team.ID, "b@x.com", roles.TeamUser)
	require.NoError(t, err)
	assert.Len(t, out.Team.Invitations, 1)
	assert.Equal(t, []string{"Unable to send team invitation email"}, out.Warnings)
}

func TestInvitationForOtherEmailIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	c := f.user(t, "Cid", "c@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	out, err := f.sync.CreateInvitation(ctx, created.Team.ID, "b@x.com", roles.TeamUser)
	require.NoError(t, err)
	invID := out.Team.Invitations[0].ID

	_, err = f.sync.GetInvitation(ctx, c, created.Team.ID, invID)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))
	_, err = f.sync.HandleInvitation(ctx, c, created.Team.ID, invID, true)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))
	_, err = f.sync.GetInvitation(ctx, c, created.Team.ID, "nope")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))

	team, err := f.teams.GetByID(ctx, created.Team.ID)
	require.NoError(t, err)
	assert.Len(t, team.Invitations, 1)
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	out, err := f.sync.CreateInvitation(ctx, created.Team.ID, "b@x.com", roles.TeamUser)
	require.NoError(t, err)
	invID := out.Team.Invitations[0].ID

	declined, err := f.sync.HandleInvitation(ctx, b, created.Team.ID, invID, false)
	require.NoError(t, err)
	assert.Empty(t, declined.User.Teams)

	team, err := f.teams.GetByID(ctx, created.Team.ID)
	require.NoError(t, err)
	assert.Empty(t, team.Invitations)
	assert.Nil(t, team.User(b.ID))

	_, err = f.sync.HandleInvitation(ctx, b, created.Team.ID, invID, false)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestDeleteInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	out, err := f.sync.CreateInvitation(ctx, created.Team.ID, "b@x.com", roles.TeamUser)
	require.NoError(t, err)

	team, err := f.sync.DeleteInvitation(ctx, created.Team.ID, out.Team.Invitations[0].ID)
	require.NoError(t, err)
	assert.Empty(t, team.Invitations)
	_, err = f.sync.DeleteInvitation(ctx, created.Team.ID, out.Team.Invitations[0].ID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

// joinTeam creates Alpha owned by a with b as a plain member.
func joinTeam(t *testing.T, f *fixture, a, b *models.User) string {
	t.Helper()
	ctx := context.Background()
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)
	out, err := f.sync.CreateInvitation(ctx, created.Team.ID, b.Email, roles.TeamUser)
	require.NoError(t, err)
	_, err = f.sync.HandleInvitation(ctx, b, created.Team.ID, out.Team.Invitations[0].ID, true)
	require.NoError(t, err)
	return created.Team.ID
}

func TestOwnerCannotBeRemovedOrLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)

	_, err := f.sync.RemoveMember(ctx, teamID, a.ID)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))
	assert.Equal(t, "Cannot delete team owner", apierr.Message(err))

	_, err = f.sync.LeaveTeam(ctx, f.reload(t, a.ID), teamID)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))

	_, err = f.sync.UpdateMemberRole(ctx, teamID, a.ID, roles.TeamAdmin)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))

	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})
}

func TestRemoveMemberClearsActiveTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)
	_, err := f.sync.SetActiveTeam(ctx, f.reload(t, b.ID), teamID)
	require.NoError(t, err)

	out, err := f.sync.RemoveMember(ctx, teamID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Team.User(b.ID))
	assert.Nil(t, out.User.Membership(teamID))
	assert.Empty(t, out.User.ActiveTeam)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	_, err = f.sync.RemoveMember(ctx, teamID, b.ID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
	assert.Equal(t, "Team user not found", apierr.Message(err))
}

func TestLeaveTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)

	out, err := f.sync.LeaveTeam(ctx, f.reload(t, b.ID), teamID)
	require.NoError(t, err)
	assert.Empty(t, out.User.Teams)
	assert.Len(t, out.Team.Users, 1)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})
}

func TestUpdateMemberRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)

	out, err := f.sync.UpdateMemberRole(ctx, teamID, b.ID, roles.TeamAdmin)
	require.NoError(t, err)
	assert.Equal(t, roles.TeamAdmin, out.Team.User(b.ID).Role)
	assert.Equal(t, roles.TeamAdmin, out.User.Membership(teamID).Role)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	_, err = f.sync.UpdateMemberRole(ctx, teamID, b.ID, roles.TeamOwner)
	assert.True(t, apierr.Is(err, apierr.KindValidation), "a second owner is never assignable")
	_, err = f.sync.UpdateMemberRole(ctx, teamID, "nobody", roles.TeamUser)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRenameTeamPropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)

	out, err := f.sync.RenameTeam(ctx, f.reload(t, a.ID), teamID, "Beta")
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Equal(t, "Beta", out.Team.Name)
	assert.Equal(t, "Beta", out.User.Membership(teamID).Name)
	assert.Equal(t, "Beta", f.reload(t, b.ID).Membership(teamID).Name)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	_, err = f.sync.RenameTeam(ctx, a, "missing", "Gamma")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRenameTeamContinuesPastMemberFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	c := f.user(t, "Cid", "c@x.com")
	teamID := joinTeam(t, f, a, b)
	inv, err := f.sync.CreateInvitation(ctx, teamID, c.Email, roles.TeamUser)
	require.NoError(t, err)
	_, err = f.sync.HandleInvitation(ctx, c, teamID, inv.Team.Invitations[0].ID, true)
	require.NoError(t, err)

	f.users.failFor[b.ID] = true
	out, err := f.sync.RenameTeam(ctx, f.reload(t, a.ID), teamID, "Beta")
	require.NoError(t, err)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, b.ID, out.Failures[0].ID)
	assert.ErrorIs(t, out.Failures[0].Err, errStore)
	assert.Equal(t, "Beta", f.reload(t, c.ID).Membership(teamID).Name, "members after the failure are still updated")
	assert.Equal(t, "Alpha", f.reload(t, b.ID).Membership(teamID).Name)
}

func TestDeleteTeamCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)
	_, err := f.sync.SetActiveTeam(ctx, f.reload(t, b.ID), teamID)
	require.NoError(t, err)

	out, err := f.sync.DeleteTeam(ctx, f.reload(t, a.ID), teamID)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Empty(t, out.User.Teams)

	bob := f.reload(t, b.ID)
	assert.Nil(t, bob.Membership(teamID))
	assert.Empty(t, bob.ActiveTeam)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	_, err = f.sync.DeleteTeam(ctx, a, teamID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestSetActiveTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	c := f.user(t, "Cid", "c@x.com")
	created, err := f.sync.CreateTeam(ctx, a, "Alpha")
	require.NoError(t, err)

	u, err := f.sync.SetActiveTeam(ctx, created.User, created.Team.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Team.ID, u.ActiveTeam)

	_, err = f.sync.SetActiveTeam(ctx, c, created.Team.ID)
	assert.True(t, apierr.Is(err, apierr.KindForbidden))
	assert.Equal(t, "User is not a part of this team", apierr.Message(err))

	_, err = f.sync.SetActiveTeam(ctx, c, "missing")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestUpdateProfilePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)
	verified := true
	_, err := f.users.Update(ctx, b.ID, users.Patch{EmailVerified: &verified})
	require.NoError(t, err)

	name, email := "Robert", "Robert@X.com"
	out, err := f.sync.UpdateProfile(ctx, b.ID, ProfileUpdate{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "robert@x.com", out.User.Email)
	assert.False(t, out.User.EmailVerified)
	assert.True(t, out.Complete())
	assert.Empty(t, out.Warnings)

	team, err := f.teams.GetByID(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamUser{ID: b.ID, Name: "Robert", Email: "robert@x.com", Role: roles.TeamUser}, *team.User(b.ID))
	assert.Equal(t, "Robert <robert@x.com>", f.customers.updated["cus_Bob"])
	assert.Equal(t, "verify-"+b.ID, f.notifier.verifications["robert@x.com"])
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ann", "a@x.com")
	f.user(t, "Bob", "b@x.com")
	email := "B@x.com"
	_, err := f.sync.UpdateProfile(context.Background(), a.ID, ProfileUpdate{Email: &email})
	assert.True(t, apierr.Is(err, apierr.KindConflict))
	assert.Equal(t, "Email already taken", apierr.Message(err))
}

func TestUpdateProfileRejectsEmailInvitedToOwnTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	teamID := joinTeam(t, f, a, b)
	_, err := f.sync.CreateInvitation(ctx, teamID, "c@x.com", roles.TeamUser)
	require.NoError(t, err)

	email := "C@x.com"
	_, err = f.sync.UpdateProfile(ctx, b.ID, ProfileUpdate{Email: &email})
	assert.True(t, apierr.Is(err, apierr.KindConflict))
	assert.Equal(t, "b@x.com", f.reload(t, b.ID).Email)

	team, err := f.teams.GetByID(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", team.User(b.ID).Email)
	assert.NotNil(t, team.InvitationByEmail("c@x.com"))
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID})

	// an address invited elsewhere is fine
	other, err := f.sync.CreateTeam(ctx, a, "Beta")
	require.NoError(t, err)
	_, err = f.sync.CreateInvitation(ctx, other.Team.ID, "d@x.com", roles.TeamUser)
	require.NoError(t, err)
	email = "d@x.com"
	_, err = f.sync.UpdateProfile(ctx, b.ID, ProfileUpdate{Email: &email})
	require.NoError(t, err)
	f.assertSymmetric(t, []string{a.ID, b.ID}, []string{teamID, other.Team.ID})
}

func TestUpdateProfileBestEffortSideEffects(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ann", "a@x.com")
	f.customers.updateErr = errors.New("stripe down")
	f.notifier.err = errors.New("smtp down")

	email := "ann@y.com"
	out, err := f.sync.UpdateProfile(context.Background(), a.ID, ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "ann@y.com", out.User.Email)
	assert.Len(t, out.Warnings, 2)
}

func TestUpdateProfileSameEmailKeepsVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	verified := true
	_, err := f.users.Update(ctx, a.ID, users.Patch{EmailVerified: &verified})
	require.NoError(t, err)

	email := "A@X.com"
	out, err := f.sync.UpdateProfile(ctx, a.ID, ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.True(t, out.User.EmailVerified)
	assert.Empty(t, f.notifier.verifications)
}

func TestUpdateProfilePassword(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ann", "a@x.com")
	weak := "short"
	_, err := f.sync.UpdateProfile(context.Background(), a.ID, ProfileUpdate{Password: &weak})
	assert.True(t, apierr.Is(err, apierr.KindValidation))

	pw := "newpassword1"
	out, err := f.sync.UpdateProfile(context.Background(), a.ID, ProfileUpdate{Password: &pw})
	require.NoError(t, err)
	assert.True(t, credentials.NewHasher(bcrypt.MinCost).Compare(out.User.PasswordHash, pw))
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Ann", "a@x.com")
	b := f.user(t, "Bob", "b@x.com")
	owned := joinTeam(t, f, a, b)

	// b also owns a team a belongs to
	other, err := f.sync.CreateTeam(ctx, f.reload(t, b.ID), "Other")
	require.NoError(t, err)
	inv, err := f.sync.CreateInvitation(ctx, other.Team.ID, a.Email, roles.TeamAdmin)
	require.NoError(t, err)
	_, err = f.sync.HandleInvitation(ctx, f.reload(t, a.ID), other.Team.ID, inv.Team.Invitations[0].ID, true)
	require.NoError(t, err)

	out, err := f.sync.DeleteUser(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Equal(t, []string{"cus_Ann"}, f.customers.deleted)

	_, err = f.users.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, users.ErrNotFound)
	_, err = f.teams.GetByID(ctx, owned)
	assert.ErrorIs(t, err, teams.ErrNotFound, "owned team is deleted")

	bob := f.reload(t, b.ID)
	assert.Nil(t, bob.Membership(owned))
	otherTeam, err := f.teams.GetByID(ctx, other.Team.ID)
	require.NoError(t, err)
	assert.Nil(t, otherTeam.User(a.ID), "membership in a foreign team is removed")
	f.assertSymmetric(t, []string{b.ID}, []string{owned, other.Team.ID})

	_, err = f.sync.DeleteUser(ctx, a.ID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}
