package models

import (
	"time"

	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
)

// TeamUser is the team-side copy of a membership record.
type TeamUser struct {
	ID    string         `bson:"id" json:"id"`
	Name  string         `bson:"name" json:"name"`
	Email string         `bson:"email" json:"email"`
	Role  roles.TeamRole `bson:"role" json:"role"`
}

// Invitation is a pending invite for an email address.
type Invitation struct {
	ID        string         `bson:"id" json:"id"`
	Email     string         `bson:"email" json:"email"`
	Role      roles.TeamRole `bson:"role" json:"role"`
	CreatedAt time.Time      `bson:"created" json:"created"`
}

type Team struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Owner       string       `bson:"owner" json:"owner"`
	Users       []TeamUser   `bson:"users" json:"users"`
	Invitations []Invitation `bson:"invitations" json:"invitations"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// User returns the member record for userID, or nil.
func (t *Team) User(userID string) *TeamUser {
	for i := range t.Users {
		if t.Users[i].ID == userID {
			return &t.Users[i]
		}
	}
	return nil
}

// UserByEmail returns the member record with the given (normalized) email, or nil.
func (t *Team) UserByEmail(email string) *TeamUser {
	email = NormalizeEmail(email)
	for i := range t.Users {
		if NormalizeEmail(t.Users[i].Email) == email {
			return &t.Users[i]
		}
	}
	return nil
}

// Invitation returns the pending invitation with the given id, or nil.
func (t *Team) Invitation(id string) *Invitation {
	for i := range t.Invitations {
		if t.Invitations[i].ID == id {
			return &t.Invitations[i]
		}
	}
	return nil
}

// InvitationByEmail returns the pending invitation for email, or nil.
func (t *Team) InvitationByEmail(email string) *Invitation {
	email = NormalizeEmail(email)
	for i := range t.Invitations {
		if NormalizeEmail(t.Invitations[i].Email) == email {
			return &t.Invitations[i]
		}
	}
	return nil
}

// IsOwner reports whether userID owns the team.
func (t *Team) IsOwner(userID string) bool {
	if t.Owner == userID {
		return true
	}
	m := t.User(userID)
	return m != nil && m.Role == roles.TeamOwner
}

// Clone returns a deep copy.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Users = make([]TeamUser, len(t.Users))
	copy(c.Users, t.Users)
	c.Invitations = make([]Invitation, len(t.Invitations))
	copy(c.Invitations, t.Invitations)
	return &c
}
