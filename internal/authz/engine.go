// Package authz decides whether an authenticated user may exercise a set of rights
// on a user-scoped or team-scoped resource.
package authz

import (
	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/metrics"
)

// Resource identifies what a request targets: the subject user (":userId")
// and the team (":teamId"). Either may be empty.
type Resource struct {
	UserID string
	TeamID string
}

type Engine struct{}

// NewEngine validates the rights tables and returns an engine.
func NewEngine() (*Engine, error) {
	if err := roles.Validate(); err != nil {
		return nil, err
	}
	return &Engine{}, nil
}

// Authorize returns nil when caller may exercise every right in required on res.
// A nil caller yields an Unauthenticated error, any failed check a Forbidden error.
func (e *Engine) Authorize(caller *models.User, required []roles.Right, res Resource) error {
	err := e.decide(caller, required, res)
	switch {
	case err == nil:
		metrics.AuthzDecisions.WithLabelValues("allow").Inc()
	case apierr.Is(err, apierr.KindUnauthenticated):
		metrics.AuthzDecisions.WithLabelValues("unauthenticated").Inc()
	default:
		metrics.AuthzDecisions.WithLabelValues("deny").Inc()
	}
	return err
}

func (e *Engine) decide(caller *models.User, required []roles.Right, res Resource) error {
	if caller == nil {
		return apierr.Unauthenticated("Please authenticate")
	}
	userRights, teamRights, unknown := roles.Partition(required)
	if len(unknown) > 0 {
		logger.Errorf("authz: unknown rights requested %v", unknown)
		return apierr.Forbidden("Forbidden")
	}

	if len(userRights) > 0 {
		granted, ok := roles.UserRights(caller.Role)
		// self-access bypass applies only when the rights check fails
		if (!ok || !roles.Covers(granted, userRights)) && (res.UserID == "" || res.UserID != caller.ID) {
			return apierr.Forbidden("Forbidden")
		}
	}

	if len(teamRights) > 0 {
		if res.TeamID == "" {
			return apierr.Forbidden("Forbidden")
		}
		m := caller.Membership(res.TeamID)
		if m == nil {
			return apierr.Forbidden("Forbidden")
		}
		granted, ok := roles.TeamRights(m.Role)
		if !ok || !roles.Covers(granted, teamRights) {
			return apierr.Forbidden("Forbidden")
		}
	}
	return nil
}
