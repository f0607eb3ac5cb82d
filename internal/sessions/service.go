package sessions

import (
	"context"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// Store records an issued token of the given type.
func (s *Service) Store(ctx context.Context, token, userID, typ string, expiresAt time.Time) error {
	return s.repo.Create(ctx, &Session{
		Token:     token,
		UserID:    userID,
		Type:      typ,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
}

// Validate returns the record of token if it exists, has the given type and has
// not expired. Otherwise it returns (nil, nil).
func (s *Service) Validate(ctx context.Context, token, typ string) (*Session, error) {
	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Type != typ {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// cleanup expired session
		_ = s.repo.DeleteByToken(ctx, token)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) Delete(ctx context.Context, token string) error {
	return s.repo.DeleteByToken(ctx, token)
}

// DeleteForUser removes every record of the given types held by userID.
func (s *Service) DeleteForUser(ctx context.Context, userID string, types ...string) error {
	for _, typ := range types {
		if err := s.repo.DeleteByUser(ctx, userID, typ); err != nil {
			return err
		}
	}
	return nil
}
