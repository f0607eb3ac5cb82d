package models

import (
	"strings"
	"time"

	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
)

// FreeTier is the subscription type of users without a paid plan.
const FreeTier = "free"

// TeamMembership is the user-side copy of a membership record.
type TeamMembership struct {
	ID   string         `bson:"id" json:"id"`
	Name string         `bson:"name" json:"name"`
	Role roles.TeamRole `bson:"role" json:"role"`
}

// PaymentMethod is the stored summary of the user's default card.
type PaymentMethod struct {
	ID    string `bson:"id" json:"id"`
	Last4 string `bson:"last4" json:"last4"`
}

// Subscription is the user's current plan; ID is empty on the free tier.
type Subscription struct {
	ID               string `bson:"id,omitempty" json:"id,omitempty"`
	SubscriptionType string `bson:"subscriptionType" json:"subscriptionType"`
}

// User represents an application account together with its team memberships.
type User struct {
	ID            string           `bson:"_id,omitempty" json:"id"`
	Name          string           `bson:"name" json:"name"`
	Email         string           `bson:"email" json:"email"`
	PasswordHash  string           `bson:"password" json:"-"`
	GithubID      string           `bson:"githubId,omitempty" json:"-"`
	GoogleID      string           `bson:"googleId,omitempty" json:"-"`
	Role          roles.GlobalRole `bson:"role" json:"role"`
	EmailVerified bool             `bson:"isEmailVerified" json:"isEmailVerified"`
	ActiveTeam    string           `bson:"activeTeam,omitempty" json:"activeTeam,omitempty"`
	Teams         []TeamMembership `bson:"teams" json:"teams"`
	Avatar        string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	StripeID      string           `bson:"stripeId" json:"-"`
	PaymentMethod *PaymentMethod   `bson:"stripePaymentMethod,omitempty" json:"stripePaymentMethod,omitempty"`
	Subscription  Subscription     `bson:"subscription" json:"subscription"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// Membership returns the user's record for teamID, or nil.
func (u *User) Membership(teamID string) *TeamMembership {
	for i := range u.Teams {
		if u.Teams[i].ID == teamID {
			return &u.Teams[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Teams = make([]TeamMembership, len(u.Teams))
	copy(c.Teams, u.Teams)
	if u.PaymentMethod != nil {
		pm := *u.PaymentMethod
		c.PaymentMethod = &pm
	}
	return &c
}

// NormalizeEmail lowercases and trims an address; emails are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
