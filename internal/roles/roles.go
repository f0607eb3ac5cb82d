package roles

import (
	"fmt"

	"github.com/samber/lo"
)

// Right is a capability checked by the authorization middleware.
type Right string

const (
	GetUsers    Right = "getUsers"
	ManageUsers Right = "manageUsers"
	GetTeam     Right = "getTeam"
	ManageTeam  Right = "manageTeam"
	DeleteTeam  Right = "deleteTeam"
)

// GlobalRole controls platform-wide rights.
type GlobalRole string

const (
	RoleUser  GlobalRole = "user"
	RoleAdmin GlobalRole = "admin"
)

// TeamRole controls rights inside a single team.
type TeamRole string

const (
	TeamUser  TeamRole = "teamUser"
	TeamAdmin TeamRole = "teamAdmin"
	TeamOwner TeamRole = "teamOwner"
)

var (
	AllUserRights = []Right{GetUsers, ManageUsers}
	AllTeamRights = []Right{GetTeam, ManageTeam, DeleteTeam}

	GlobalRoles = []GlobalRole{RoleUser, RoleAdmin}
	TeamRoles   = []TeamRole{TeamUser, TeamAdmin, TeamOwner}

	// AssignableTeamRoles are the roles an invitation or a role change may grant.
	AssignableTeamRoles = []TeamRole{TeamUser, TeamAdmin}
)

var globalRoleRights = map[GlobalRole][]Right{
	RoleUser:  {},
	RoleAdmin: {GetUsers, ManageUsers},
}

var teamRoleRights = map[TeamRole][]Right{
	TeamUser:  {GetTeam},
	TeamAdmin: {GetTeam, ManageTeam},
	TeamOwner: {GetTeam, ManageTeam, DeleteTeam},
}

func (r GlobalRole) Valid() bool { return lo.Contains(GlobalRoles, r) }
func (r TeamRole) Valid() bool   { return lo.Contains(TeamRoles, r) }

// Assignable reports whether r may be granted through invitations or role changes.
func (r TeamRole) Assignable() bool { return lo.Contains(AssignableTeamRoles, r) }

func IsUserRight(r Right) bool { return lo.Contains(AllUserRights, r) }
func IsTeamRight(r Right) bool { return lo.Contains(AllTeamRights, r) }

// UserRights returns the rights granted by a global role. ok is false for unknown roles.
func UserRights(r GlobalRole) (rights []Right, ok bool) {
	rights, ok = globalRoleRights[r]
	return rights, ok
}

// TeamRights returns the rights granted by a team role. ok is false for unknown roles.
func TeamRights(r TeamRole) (rights []Right, ok bool) {
	rights, ok = teamRoleRights[r]
	return rights, ok
}

// Partition splits required rights into user rights, team rights and rights
// that belong to neither universe.
func Partition(required []Right) (user, team, unknown []Right) {
	for _, r := range required {
		switch {
		case IsUserRight(r):
			user = append(user, r)
		case IsTeamRight(r):
			team = append(team, r)
		default:
			unknown = append(unknown, r)
		}
	}
	return user, team, unknown
}

// Covers reports whether granted contains every right in required.
func Covers(granted, required []Right) bool {
	return lo.Every(granted, required)
}

// Validate checks the rights tables at startup: every role has an entry and
// every granted right belongs to the matching universe.
func Validate() error {
	if len(lo.Intersect(AllUserRights, AllTeamRights)) > 0 {
		return fmt.Errorf("roles: user and team rights overlap")
	}
	for _, r := range GlobalRoles {
		rights, ok := globalRoleRights[r]
		if !ok {
			return fmt.Errorf("roles: global role %q has no rights entry", r)
		}
		for _, right := range rights {
			if !IsUserRight(right) {
				return fmt.Errorf("roles: global role %q grants non-user right %q", r, right)
			}
		}
	}
	for _, r := range TeamRoles {
		rights, ok := teamRoleRights[r]
		if !ok {
			return fmt.Errorf("roles: team role %q has no rights entry", r)
		}
		for _, right := range rights {
			if !IsTeamRight(right) {
				return fmt.Errorf("roles: team role %q grants non-team right %q", r, right)
			}
		}
	}
	if len(globalRoleRights) != len(GlobalRoles) || len(teamRoleRights) != len(TeamRoles) {
		return fmt.Errorf("roles: rights tables contain undeclared roles")
	}
	return nil
}
