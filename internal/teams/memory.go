package teams

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Team
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.Team)}
}

func (m *MemoryRepository) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	for i := range c.Users {
		c.Users[i].Email = models.NormalizeEmail(c.Users[i].Email)
	}
	m.store[c.ID] = c
	return c.Clone(), nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.store[id]; ok {
		return t.Clone(), nil
	}
	return nil, ErrNotFound
}

// mutate applies fn to the stored team under the write lock.
func (m *MemoryRepository) mutate(id string, fn func(t *models.Team) error) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()
	return t.Clone(), nil
}

func (m *MemoryRepository) Rename(ctx context.Context, id, name string) (*models.Team, error) {
	return m.mutate(id, func(t *models.Team) error {
		t.Name = name
		return nil
	})
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.store, id)
	return t, nil
}

func (m *MemoryRepository) AddUser(ctx context.Context, teamID string, u models.TeamUser) (*models.Team, error) {
	return m.mutate(teamID, func(t *models.Team) error {
		if t.User(u.ID) != nil {
			return ErrDuplicateMember
		}
		u.Email = models.NormalizeEmail(u.Email)
		t.Users = append(t.Users, u)
		return nil
	})
}

func (m *MemoryRepository) UpdateUser(ctx context.Context, teamID, userID string, p UserPatch) (*models.Team, error) {
	return m.mutate(teamID, func(t *models.Team) error {
		cur := t.User(userID)
		if cur == nil {
			return ErrMemberNotFound
		}
		if p.Name != nil {
			cur.Name = *p.Name
		}
		if p.Email != nil {
			cur.Email = models.NormalizeEmail(*p.Email)
		}
		if p.Role != nil {
			cur.Role = *p.Role
		}
		return nil
	})
}

func (m *MemoryRepository) RemoveUser(ctx context.Context, teamID, userID string) (*models.Team, error) {
	return m.mutate(teamID, func(t *models.Team) error {
		for i := range t.Users {
			if t.Users[i].ID == userID {
				t.Users = append(t.Users[:i], t.Users[i+1:]...)
				return nil
			}
		}
		return ErrMemberNotFound
	})
}

func (m *MemoryRepository) AddInvitation(ctx context.Context, teamID string, inv models.Invitation) (*models.Team, error) {
	return m.mutate(teamID, func(t *models.Team) error {
		inv.Email = models.NormalizeEmail(inv.Email)
		if t.UserByEmail(inv.Email) != nil {
			return ErrAlreadyMember
		}
		if t.InvitationByEmail(inv.Email) != nil {
			return ErrDuplicateInvitation
		}
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = time.Now().UTC()
		}
		t.Invitations = append(t.Invitations, inv)
		return nil
	})
}

func (m *MemoryRepository) RemoveInvitation(ctx context.Context, teamID, invitationID string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	before := t.Clone()
	for i := range t.Invitations {
		if t.Invitations[i].ID == invitationID {
			t.Invitations = append(t.Invitations[:i], t.Invitations[i+1:]...)
			t.UpdatedAt = time.Now().UTC()
			return before, nil
		}
	}
	return nil, ErrInvitationNotFound
}
