package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamhub/teamhub/backend/go-services/internal/auth"
	"github.com/teamhub/teamhub/backend/go-services/internal/authz"
	"github.com/teamhub/teamhub/backend/go-services/internal/billing"
	"github.com/teamhub/teamhub/backend/go-services/internal/config"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/membership"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/notify"
	"github.com/teamhub/teamhub/backend/go-services/internal/oauth"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/sessions"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/tokens"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type obj map[string]interface{}

type outbox struct {
	sent []notify.Message
}

func (o *outbox) Send(ctx context.Context, msg notify.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

type memAvatars struct {
	objects map[string][]byte
}

func (m *memAvatars) UploadAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := "avatars/" + userID
	m.objects[key] = b
	return key, nil
}

func (m *memAvatars) AvatarURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}

func (m *memAvatars) DeleteAvatar(ctx context.Context, userID string) error {
	delete(m.objects, "avatars/"+userID)
	return nil
}

// customers fails billing customer deletes on demand.
type customers struct {
	billing.OfflineGateway
	deleteErr error
}

func (c *customers) DeleteCustomer(ctx context.Context, id string) error {
	return c.deleteErr
}

type server struct {
	router    *gin.Engine
	customers *customers
	users     *users.MemoryRepository
	teams     *teams.MemoryRepository
	mail      *outbox
	avatars   *memAvatars
	auth      *auth.Service
}

func newServer(t *testing.T) *server {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	s := &server{
		customers: &customers{},
		users:     users.NewMemoryRepository(),
		teams:     teams.NewMemoryRepository(),
		mail:      &outbox{},
		avatars:   &memAvatars{objects: map[string][]byte{}},
	}
	hasher := credentials.NewHasher(bcrypt.MinCost)
	gw := billing.OfflineGateway{}
	notifier := notify.NewNotifier(s.mail, "http://client.test")
	userSvc := users.NewService(s.users, hasher, gw)
	issuer := tokens.NewIssuer("handler-secret")
	blacklist := sessions.NewBlacklist(client)
	s.auth = auth.NewService(auth.Deps{
		Users:     userSvc,
		Hasher:    hasher,
		Issuer:    issuer,
		Sessions:  sessions.NewService(sessions.NewRedisRepository(client, "")),
		Blacklist: blacklist,
		Mailer:    notifier,
		JWT: config.JWTConfig{
			AccessTokenTTL:   30 * time.Minute,
			RefreshTokenTTL:  24 * time.Hour,
			ResetPasswordTTL: 10 * time.Minute,
			VerifyEmailTTL:   24 * time.Hour,
		},
	})
	sync := membership.NewSynchronizer(membership.Deps{
		Users:        s.users,
		Teams:        s.teams,
		Customers:    s.customers,
		Notifier:     notifier,
		Verification: s.auth,
		Hasher:       hasher,
	})
	engine, err := authz.NewEngine()
	require.NoError(t, err)
	billingSvc := billing.NewService(gw, billing.NewCatalog(gw, time.Hour), s.users)

	s.router = gin.New()
	v1 := s.router.Group("/v1")
	authenticate := middleware.Authenticate(issuer, blacklist, userSvc)
	noLimit := func(c *gin.Context) { c.Next() }
	NewAuthHandler(s.auth, oauth.NewRegistry(), "http://client.test").Register(v1, noLimit, authenticate)
	NewUserHandler(userSvc, sync, s.auth, s.avatars).Register(v1, authenticate, engine)
	NewTeamHandler(sync).Register(v1, authenticate, engine)
	NewBillingHandler(billingSvc, "").Register(v1, authenticate)
	return s
}

// signUp registers an account and returns it with its access token.
func (s *server) signUp(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	res, err := s.auth.Register(context.Background(), name, email, "password1")
	require.NoError(t, err)
	return res.User, res.Tokens.Access.Token
}

func (s *server) makeAdmin(t *testing.T, id string) {
	t.Helper()
	admin := roles.RoleAdmin
	_, err := s.users.Update(context.Background(), id, users.Patch{Role: &admin})
	require.NoError(t, err)
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
