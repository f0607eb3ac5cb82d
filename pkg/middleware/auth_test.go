package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/teamhub/teamhub/backend/go-services/internal/authz"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/sessions"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts "goodtoken" for user1 and "admintoken" for admin1.
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken", "black-token":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "type": "access"}}, nil
	case "admintoken":
		return &fakeToken{data: map[string]interface{}{"sub": "admin1", "type": "access"}}, nil
	case "ghosttoken":
		return &fakeToken{data: map[string]interface{}{"sub": "ghost", "type": "access"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s not found", id)
}

func testUsers() fakeUsers {
	return fakeUsers{
		"user1": {
			ID:    "user1",
			Role:  roles.RoleUser,
			Teams: []models.TeamMembership{{ID: "team1", Name: "T", Role: roles.TeamUser}},
		},
		"admin1": {ID: "admin1", Role: roles.RoleAdmin},
	}
}

func serve(g *gin.Engine, token, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func errorBody(t *testing.T, rw *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthenticate_RejectsMissingAndMalformedHeaders(t *testing.T) {
	g := gin.New()
	g.GET("/", Authenticate(&fakeVerifier{}, nil, testUsers()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"", "BadHeader", "Bearer", "Basic goodtoken", "Bearer badtoken", "Bearer ghosttoken"} {
		rw := serve(g, header, "/")
		require.Equal(t, http.StatusUnauthorized, rw.Code, header)
		require.Equal(t, "Please authenticate", errorBody(t, rw))
	}
}

func TestAuthenticate_LoadsCaller(t *testing.T) {
	g := gin.New()
	g.GET("/", Authenticate(&fakeVerifier{}, nil, testUsers()), func(c *gin.Context) {
		u := CurrentUser(c)
		require.NotNil(t, u)
		claims, ok := c.Get(ClaimsKey)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "claims": claims})
	})
	rw := serve(g, "Bearer goodtoken", "/")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["id"])
}

func TestAuthenticate_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	token := "black-token"
	require.NoError(t, bl.Add(context.Background(), token, 5*time.Second))

	g := gin.New()
	g.GET("/", Authenticate(&fakeVerifier{}, bl, testUsers()), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer "+token, "/").Code)
	require.Equal(t, http.StatusOK, serve(g, "Bearer goodtoken", "/").Code)
}

type downRevocations struct{}

func (downRevocations) Contains(ctx context.Context, token string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestAuthenticate_RejectsWhenRevocationCheckFails(t *testing.T) {
	g := gin.New()
	g.GET("/", Authenticate(&fakeVerifier{}, downRevocations{}, testUsers()), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := serve(g, "Bearer goodtoken", "/")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "Please authenticate", errorBody(t, rw))
}

func TestAuthorize_UsesRouteParams(t *testing.T) {
	engine, err := authz.NewEngine()
	require.NoError(t, err)

	g := gin.New()
	auth := Authenticate(&fakeVerifier{}, nil, testUsers())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	g.GET("/users/:userId", auth, Authorize(engine, roles.GetUsers), ok)
	g.GET("/team/:teamId", auth, Authorize(engine, roles.GetTeam), ok)
	g.DELETE("/team/:teamId", auth, Authorize(engine, roles.DeleteTeam), ok)

	require.Equal(t, http.StatusOK, serve(g, "Bearer goodtoken", "/users/user1").Code)
	require.Equal(t, http.StatusForbidden, serve(g, "Bearer goodtoken", "/users/admin1").Code)
	require.Equal(t, http.StatusOK, serve(g, "Bearer admintoken", "/users/user1").Code)

	require.Equal(t, http.StatusOK, serve(g, "Bearer goodtoken", "/team/team1").Code)
	rw := serve(g, "Bearer goodtoken", "/team/missing")
	require.Equal(t, http.StatusForbidden, rw.Code)
	require.Equal(t, "Forbidden", errorBody(t, rw))

	req := httptest.NewRequest(http.MethodDelete, "/team/team1", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
