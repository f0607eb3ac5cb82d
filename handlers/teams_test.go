package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teamBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Users []struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"users"`
	Invitations []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"invitations"`
}

type outcomeBody struct {
	User struct {
		ID    string `json:"id"`
		Teams []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"teams"`
	} `json:"user"`
	Team     teamBody `json:"team"`
	Warnings []string `json:"warnings"`
}

func (s *server) createTeam(t *testing.T, token, name string) string {
	t.Helper()
	w := s.do("POST", "/v1/team", token, obj{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out outcomeBody
	decode(t, w, &out)
	require.Len(t, out.User.Teams, 1)
	assert.Equal(t, "teamOwner", out.User.Teams[0].Role)
	return out.Team.ID
}

func TestTeamInvitationFlow(t *testing.T) {
	s := newServer(t)
	_, owner := s.signUp(t, "Ada", "ada@example.com")
	bob, bobToken := s.signUp(t, "Bob", "bob@example.com")
	_, eveToken := s.signUp(t, "Eve", "eve@example.com")
	teamID := s.createTeam(t, owner, "Core")

	// outsiders are denied before the team is looked up
	assert.Equal(t, http.StatusForbidden, s.do("GET", "/v1/team/"+teamID, bobToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do("GET", "/v1/team/missing", bobToken, nil).Code)

	s.mail.sent = nil
	w := s.do("POST", "/v1/team/"+teamID+"/invitation", owner, obj{"email": "bob@example.com", "role": "teamAdmin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var invited outcomeBody
	decode(t, w, &invited)
	require.Len(t, invited.Team.Invitations, 1)
	invID := invited.Team.Invitations[0].ID
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, "Team invitation", s.mail.sent[0].Subject)
	assert.Contains(t, s.mail.sent[0].Text, "/app/team-invitation/"+teamID+"?invitationId="+invID)

	w = s.do("POST", "/v1/team/"+teamID+"/invitation", owner, obj{"email": "bob@example.com", "role": "teamOwner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/v1/team/" + teamID + "/invitation/" + invID
	assert.Equal(t, http.StatusForbidden, s.do("GET", path, eveToken, nil).Code)

	w = s.do("GET", path, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"teamName":"Core"`)

	w = s.do("POST", path, bobToken, obj{"accepted": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var joined outcomeBody
	decode(t, w, &joined)
	assert.Equal(t, bob.ID, joined.User.ID)
	require.Len(t, joined.User.Teams, 1)
	assert.Equal(t, "teamAdmin", joined.User.Teams[0].Role)
	assert.Len(t, joined.Team.Users, 2)
	assert.Empty(t, joined.Team.Invitations)

	// a second answer finds nothing
	assert.Equal(t, http.StatusNotFound, s.do("POST", path, bobToken, obj{"accepted": true}).Code)

	// admins can view and manage but not delete
	assert.Equal(t, http.StatusOK, s.do("GET", "/v1/team/"+teamID, bobToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do("DELETE", "/v1/team/"+teamID, bobToken, nil).Code)
}

func TestTeamRenameRoleChangeAndDelete(t *testing.T) {
	s := newServer(t)
	ada, owner := s.signUp(t, "Ada", "ada@example.com")
	bob, bobToken := s.signUp(t, "Bob", "bob@example.com")
	teamID := s.createTeam(t, owner, "Core")

	w := s.do("POST", "/v1/team/"+teamID+"/invitation", owner, obj{"email": "bob@example.com", "role": "teamUser"})
	require.Equal(t, http.StatusOK, w.Code)
	var invited outcomeBody
	decode(t, w, &invited)
	w = s.do("POST", "/v1/team/"+teamID+"/invitation/"+invited.Team.Invitations[0].ID, bobToken, obj{"accepted": true})
	require.Equal(t, http.StatusOK, w.Code)

	// a plain member cannot rename
	assert.Equal(t, http.StatusForbidden, s.do("PATCH", "/v1/team/"+teamID, bobToken, obj{"name": "Mine"}).Code)

	w = s.do("PATCH", "/v1/team/"+teamID, owner, obj{"name": "Platform"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b, err := s.users.GetByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Platform", b.Membership(teamID).Name)

	w = s.do("PATCH", "/v1/team/"+teamID+"/user/"+ada.ID, owner, obj{"role": "teamUser"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot change the role of the team owner", errorMessage(t, w))

	w = s.do("PATCH", "/v1/team/"+teamID+"/user/"+bob.ID, owner, obj{"role": "teamAdmin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do("POST", "/v1/team/set-active-team", bobToken, obj{"teamId": teamID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"activeTeam":"`+teamID+`"`)

	w = s.do("DELETE", "/v1/team/"+teamID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b, err = s.users.GetByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, b.Teams)
	assert.Empty(t, b.ActiveTeam)
}

func TestLeaveAndRemoveMember(t *testing.T) {
	s := newServer(t)
	_, owner := s.signUp(t, "Ada", "ada@example.com")
	bob, bobToken := s.signUp(t, "Bob", "bob@example.com")
	teamID := s.createTeam(t, owner, "Core")

	w := s.do("POST", "/v1/team/"+teamID, owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot delete team owner", errorMessage(t, w))

	w = s.do("POST", "/v1/team/"+teamID+"/invitation", owner, obj{"email": "bob@example.com", "role": "teamUser"})
	var invited outcomeBody
	decode(t, w, &invited)
	require.Equal(t, http.StatusOK, s.do("POST", "/v1/team/"+teamID+"/invitation/"+invited.Team.Invitations[0].ID, bobToken, obj{"accepted": true}).Code)

	w = s.do("POST", "/v1/team/"+teamID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var left outcomeBody
	decode(t, w, &left)
	assert.Empty(t, left.User.Teams)
	assert.Len(t, left.Team.Users, 1)

	w = s.do("DELETE", "/v1/team/"+teamID+"/user/"+bob.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("POST", "/v1/team/"+teamID+"/invitation", owner, obj{"email": "carol@example.com", "role": "teamUser"})
	decode(t, w, &invited)
	w = s.do("DELETE", "/v1/team/"+teamID+"/invitation/"+invited.Team.Invitations[0].ID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var team teamBody
	decode(t, w, &team)
	assert.Empty(t, team.Invitations)
}
