package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/authz"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// Context keys set by Authenticate.
const (
	ClaimsKey = "claims"
	UserKey   = "user"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Revocations reports access tokens revoked before their expiry.
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// UserLoader loads the account named by the token subject.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Abort writes err as {"error": message} with its mapped status.
func Abort(c *gin.Context, err error) {
	if apierr.KindOf(err) == apierr.KindInternal {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(apierr.HTTPStatus(err), gin.H{"error": apierr.Message(err)})
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate verifies the bearer token, rejects revoked tokens and loads the
// caller. Every failure answers 401 "Please authenticate", including a
// revocation store that cannot be reached.
func Authenticate(ver Verifier, revoked Revocations, loader UserLoader) gin.HandlerFunc {
	unauthenticated := apierr.Unauthenticated("Please authenticate")
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			Abort(c, unauthenticated)
			return
		}
		ctx := c.Request.Context()
		if revoked != nil {
			black, err := revoked.Contains(ctx, raw)
			if err != nil {
				logger.Warnf("auth: revocation check failed: %v", err)
			}
			if err != nil || black {
				Abort(c, unauthenticated)
				return
			}
		}
		tok, err := ver.Verify(ctx, raw)
		if err != nil {
			logger.Debugf("auth: token rejected: %v", err)
			Abort(c, unauthenticated)
			return
		}
		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			Abort(c, unauthenticated)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			Abort(c, unauthenticated)
			return
		}
		u, err := loader.GetByID(ctx, sub)
		if err != nil || u == nil {
			Abort(c, unauthenticated)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(UserKey, u)
		c.Next()
	}
}

// CurrentUser returns the caller loaded by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// Authorizer decides a request given the caller and the route's resource.
type Authorizer interface {
	Authorize(caller *models.User, required []roles.Right, res authz.Resource) error
}

// Authorize requires rights on the resource named by the ":userId" and
// ":teamId" route parameters. It runs before any existence check.
func Authorize(engine Authorizer, rights ...roles.Right) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := authz.Resource{UserID: c.Param("userId"), TeamID: c.Param("teamId")}
		if err := engine.Authorize(CurrentUser(c), rights, res); err != nil {
			Abort(c, err)
			return
		}
		c.Next()
	}
}
