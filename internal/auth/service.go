// Package auth implements registration, login, token rotation, password reset,
// email verification and OAuth sign-in on top of the token and credential stores.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/config"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/oauth"
	"github.com/teamhub/teamhub/backend/go-services/internal/sessions"
	"github.com/teamhub/teamhub/backend/go-services/internal/tokens"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/metrics"
)

// Mailer sends the account emails.
type Mailer interface {
	SendResetPassword(ctx context.Context, to, token string) error
	SendEmailVerification(ctx context.Context, to, token string) error
}

// TokenInfo is a signed token and its expiry.
type TokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Tokens is an access/refresh pair.
type Tokens struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}

// Result is returned by every sign-in path.
type Result struct {
	User     *models.User
	Tokens   Tokens
	Warnings []string
}

type Deps struct {
	Users     *users.Service
	Hasher    *credentials.Hasher
	Issuer    *tokens.Issuer
	Sessions  *sessions.Service
	Blacklist *sessions.Blacklist
	Mailer    Mailer
	JWT       config.JWTConfig
}

type Service struct {
	users     *users.Service
	repo      users.Repository
	hasher    *credentials.Hasher
	issuer    *tokens.Issuer
	sessions  *sessions.Service
	blacklist *sessions.Blacklist
	mailer    Mailer
	jwt       config.JWTConfig
}

func NewService(d Deps) *Service {
	return &Service{
		users:     d.Users,
		repo:      d.Users.Repo(),
		hasher:    d.Hasher,
		issuer:    d.Issuer,
		sessions:  d.Sessions,
		blacklist: d.Blacklist,
		mailer:    d.Mailer,
		jwt:       d.JWT,
	}
}

// GenerateTokens issues an access token and a stored refresh token for u.
func (s *Service) GenerateTokens(ctx context.Context, u *models.User) (Tokens, error) {
	access, accessExp, err := s.issuer.Generate(u.ID, tokens.Access, s.jwt.AccessTokenTTL)
	if err != nil {
		return Tokens{}, apierr.Internal(err)
	}
	refresh, refreshExp, err := s.issue(ctx, u.ID, tokens.Refresh, s.jwt.RefreshTokenTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		Access:  TokenInfo{Token: access, Expires: accessExp},
		Refresh: TokenInfo{Token: refresh, Expires: refreshExp},
	}, nil
}

// issue signs a token of typ and records it in the session store.
func (s *Service) issue(ctx context.Context, userID string, typ tokens.Type, ttl time.Duration) (string, time.Time, error) {
	raw, exp, err := s.issuer.Generate(userID, typ, ttl)
	if err != nil {
		return "", time.Time{}, apierr.Internal(err)
	}
	if err := s.sessions.Store(ctx, raw, userID, string(typ), exp); err != nil {
		return "", time.Time{}, apierr.Internal(err)
	}
	return raw, exp, nil
}

// verify checks the signature and purpose of raw and that its record is still stored.
func (s *Service) verify(ctx context.Context, raw string, typ tokens.Type) (*sessions.Session, error) {
	claims, err := s.issuer.Parse(raw, typ)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Validate(ctx, raw, string(typ))
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != claims.Subject {
		return nil, errors.New("token record not found")
	}
	return sess, nil
}

func (s *Service) signIn(ctx context.Context, u *models.User) (*Result, error) {
	t, err := s.GenerateTokens(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, Tokens: t}, nil
}

// Register creates an account with a billing customer and signs it in. The
// verification email is best-effort.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name is required")
	}
	u, err := s.users.CreateWithBilling(ctx, users.CreateInput{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	res, err := s.signIn(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.sendVerification(ctx, u); err != nil {
		res.Warnings = append(res.Warnings, "Unable to send email verification email")
	}
	return res, nil
}

// Login checks email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return nil, apierr.Internal(err)
	}
	if u == nil || !s.hasher.Compare(u.PasswordHash, password) {
		return nil, apierr.Unauthenticated("Incorrect email or password")
	}
	return s.signIn(ctx, u)
}

// Logout deletes the refresh record and revokes the presented access token, if any.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	sess, err := s.sessions.Validate(ctx, refreshToken, string(tokens.Refresh))
	if err != nil {
		return apierr.Internal(err)
	}
	if sess == nil {
		return apierr.NotFound("Not found")
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return apierr.Internal(err)
	}
	if accessToken != "" {
		if claims, err := s.issuer.Parse(accessToken, tokens.Access); err == nil && claims.ExpiresAt != nil {
			if err := s.blacklist.Add(ctx, accessToken, time.Until(claims.ExpiresAt.Time)); err != nil {
				return apierr.Internal(err)
			}
		}
	}
	return nil
}

// Refresh rotates the refresh token and returns the user with a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	sess, err := s.verify(ctx, refreshToken, tokens.Refresh)
	if err != nil {
		return nil, apierr.Unauthenticated("Please authenticate")
	}
	u, err := s.repo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, apierr.Unauthenticated("Please authenticate")
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return nil, apierr.Internal(err)
	}
	return s.signIn(ctx, u)
}

// ForgotPassword emails a reset link. The email is best-effort; failures are logged.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return apierr.NotFound("No users found with this email")
	}
	if err != nil {
		return apierr.Internal(err)
	}
	token, _, err := s.issue(ctx, u.ID, tokens.ResetPassword, s.jwt.ResetPasswordTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendResetPassword(ctx, u.Email, token); err != nil {
		metrics.NotificationFailures.WithLabelValues("reset_password").Inc()
		logger.Warnf("auth: reset password email to user %s failed: %v", u.ID, err)
	}
	return nil
}

// ResetPassword sets a new password and invalidates every reset and refresh token of the user.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := credentials.ValidatePassword(password); err != nil {
		return err
	}
	sess, err := s.verify(ctx, token, tokens.ResetPassword)
	if err != nil {
		return apierr.Unauthenticated("Password reset failed")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apierr.Internal(err)
	}
	if _, err := s.repo.Update(ctx, sess.UserID, users.Patch{PasswordHash: &hash}); err != nil {
		return apierr.Unauthenticated("Password reset failed")
	}
	if err := s.sessions.DeleteForUser(ctx, sess.UserID, string(tokens.ResetPassword), string(tokens.Refresh)); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

// IssueEmailVerification stores and returns a new verification token for u.
func (s *Service) IssueEmailVerification(ctx context.Context, u *models.User) (string, error) {
	token, _, err := s.issue(ctx, u.ID, tokens.VerifyEmail, s.jwt.VerifyEmailTTL)
	return token, err
}

func (s *Service) sendVerification(ctx context.Context, u *models.User) error {
	token, err := s.IssueEmailVerification(ctx, u)
	if err == nil {
		err = s.mailer.SendEmailVerification(ctx, u.Email, token)
	}
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("email_verification").Inc()
		logger.Warnf("auth: verification email to user %s failed: %v", u.ID, err)
	}
	return err
}

// SendVerificationEmail sends a fresh verification link to the caller.
func (s *Service) SendVerificationEmail(ctx context.Context, u *models.User) error {
	if err := s.sendVerification(ctx, u); err != nil {
		return apierr.External("Unable to send email verification email", err)
	}
	return nil
}

// VerifyEmail marks the token's user as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	sess, err := s.verify(ctx, token, tokens.VerifyEmail)
	if err != nil {
		return apierr.Unauthenticated("Email verification failed")
	}
	verified := true
	if _, err := s.repo.Update(ctx, sess.UserID, users.Patch{EmailVerified: &verified}); err != nil {
		return apierr.Unauthenticated("Email verification failed")
	}
	if err := s.sessions.DeleteForUser(ctx, sess.UserID, string(tokens.VerifyEmail)); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

// OAuthLogin signs in the account linked to id, linking an account with the
// same email or creating a new verified one when none is linked yet.
func (s *Service) OAuthLogin(ctx context.Context, id *oauth.Identity) (*Result, error) {
	if id == nil || id.ID == "" {
		return nil, apierr.Unauthenticated("Please authenticate")
	}
	u, err := s.repo.GetByProvider(ctx, id.Provider, id.ID)
	if err == nil {
		return s.signIn(ctx, u)
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, apierr.Internal(err)
	}
	if id.Email == "" {
		return nil, apierr.Unauthenticated("No verified email address available")
	}

	u, err = s.repo.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		var patch users.Patch
		switch id.Provider {
		case users.ProviderGitHub:
			patch.GithubID = &id.ID
		case users.ProviderGoogle:
			patch.GoogleID = &id.ID
		default:
			return nil, apierr.Validation("unknown provider")
		}
		u, err = s.repo.Update(ctx, u.ID, patch)
		if err != nil {
			return nil, users.TranslateError(err)
		}
		logger.Infof("auth: linked %s account to user %s", id.Provider, u.ID)
		return s.signIn(ctx, u)
	case !errors.Is(err, users.ErrNotFound):
		return nil, apierr.Internal(err)
	}

	password, err := credentials.RandomPassword()
	if err != nil {
		return nil, apierr.Internal(err)
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	in := users.CreateInput{Name: name, Email: id.Email, Password: password, EmailVerified: true}
	switch id.Provider {
	case users.ProviderGitHub:
		in.GithubID = id.ID
	case users.ProviderGoogle:
		in.GoogleID = id.ID
	default:
		return nil, apierr.Validation("unknown provider")
	}
	u, err = s.users.CreateWithBilling(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, u)
}

// RevokeUserSessions deletes every stored token of the user.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) error {
	return s.sessions.DeleteForUser(ctx, userID,
		string(tokens.Refresh), string(tokens.ResetPassword), string(tokens.VerifyEmail))
}
