// Package tokens issues and parses the signed JWTs used for access, refresh,
// password reset and email verification.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

type Type string

const (
	Access        Type = "access"
	Refresh       Type = "refresh"
	ResetPassword Type = "resetPassword"
	VerifyEmail   Type = "verifyEmail"
)

var ErrWrongType = errors.New("token type mismatch")

// Claims are the registered claims plus the token purpose.
type Claims struct {
	Type Type `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Generate signs a token of the given type for userID and returns it with its expiry.
func (i *Issuer) Generate(userID string, typ Type, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies signature, expiry and purpose of raw.
func (i *Issuer) Parse(raw string, typ Type) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: got %q want %q", ErrWrongType, claims.Type, typ)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}

type verified struct {
	claims *Claims
}

func (v verified) Claims(out interface{}) error {
	b, err := json.Marshal(v.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Verify implements middleware.Verifier for access tokens.
func (i *Issuer) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	c, err := i.Parse(raw, Access)
	if err != nil {
		return nil, err
	}
	return verified{claims: c}, nil
}
