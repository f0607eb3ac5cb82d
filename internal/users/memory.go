package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository used by unit tests and local runs
// without MongoDB. Values are cloned on the way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

// conflict reports a uniqueness violation of u against every other stored user.
func (m *MemoryRepository) conflict(u *models.User) error {
	for id, other := range m.store {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return ErrDuplicateEmail
		}
		if u.GithubID != "" && other.GithubID == u.GithubID {
			return ErrDuplicateIdentity
		}
		if u.GoogleID != "" && other.GoogleID == u.GoogleID {
			return ErrDuplicateIdentity
		}
		if u.StripeID != "" && other.StripeID == u.StripeID {
			return ErrDuplicateIdentity
		}
	}
	return nil
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := u.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := m.store[c.ID]; ok {
		return nil, ErrDuplicateIdentity
	}
	c.Email = models.NormalizeEmail(c.Email)
	if err := m.conflict(c); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.store[c.ID] = c
	return c.Clone(), nil
}

func (m *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[id]; ok {
		return u.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *MemoryRepository) GetByStripeID(ctx context.Context, stripeID string) (*models.User, error) {
	if stripeID == "" {
		return nil, ErrNotFound
	}
	return m.find(func(u *models.User) bool { return u.StripeID == stripeID })
}

func (m *MemoryRepository) GetByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	if providerID == "" {
		return nil, ErrNotFound
	}
	switch provider {
	case ProviderGitHub:
		return m.find(func(u *models.User) bool { return u.GithubID == providerID })
	case ProviderGoogle:
		return m.find(func(u *models.User) bool { return u.GoogleID == providerID })
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) Query(ctx context.Context, f Filter, opts QueryOptions) (*QueryResult, error) {
	opts = normalizeOptions(opts)
	m.mu.RLock()
	matched := make([]*models.User, 0, len(m.store))
	for _, u := range m.store {
		if f.Name != "" && u.Name != f.Name {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		matched = append(matched, u.Clone())
	}
	m.mu.RUnlock()

	field, dir, _ := strings.Cut(opts.SortBy, ":")
	sort.SliceStable(matched, func(i, j int) bool {
		less := lessBy(field, matched[i], matched[j])
		if dir == "desc" {
			return lessBy(field, matched[j], matched[i])
		}
		return less
	})

	total := int64(len(matched))
	start := (opts.Page - 1) * opts.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return &QueryResult{
		Results:      matched[start:end],
		Page:         opts.Page,
		Limit:        opts.Limit,
		TotalPages:   totalPages(total, opts.Limit),
		TotalResults: total,
	}, nil
}

func lessBy(field string, a, b *models.User) bool {
	switch field {
	case "name":
		return a.Name < b.Name
	case "email":
		return a.Email < b.Email
	case "role":
		return a.Role < b.Role
	}
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (m *MemoryRepository) Update(ctx context.Context, id string, p Patch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := cur.Clone()
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = models.NormalizeEmail(*p.Email)
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.GithubID != nil {
		u.GithubID = *p.GithubID
	}
	if p.GoogleID != nil {
		u.GoogleID = *p.GoogleID
	}
	if p.ActiveTeam != nil {
		u.ActiveTeam = *p.ActiveTeam
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.StripeID != nil {
		u.StripeID = *p.StripeID
	}
	if p.PaymentMethod != nil {
		if *p.PaymentMethod == nil {
			u.PaymentMethod = nil
		} else {
			pm := **p.PaymentMethod
			u.PaymentMethod = &pm
		}
	}
	if p.Subscription != nil {
		u.Subscription = *p.Subscription
	}
	if err := m.conflict(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	m.store[id] = u
	return u.Clone(), nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepository) AddTeam(ctx context.Context, userID string, tm models.TeamMembership) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Membership(tm.ID) != nil {
		return nil, ErrDuplicateMembership
	}
	u.Teams = append(u.Teams, tm)
	u.UpdatedAt = time.Now().UTC()
	return u.Clone(), nil
}

func (m *MemoryRepository) UpdateTeam(ctx context.Context, userID string, tm models.TeamMembership) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cur := u.Membership(tm.ID)
	if cur == nil {
		return nil, ErrMembershipNotFound
	}
	cur.Name = tm.Name
	cur.Role = tm.Role
	u.UpdatedAt = time.Now().UTC()
	return u.Clone(), nil
}

func (m *MemoryRepository) RemoveTeam(ctx context.Context, userID, teamID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, ErrNotFound
	}
	kept := u.Teams[:0]
	for _, tm := range u.Teams {
		if tm.ID != teamID {
			kept = append(kept, tm)
		}
	}
	u.Teams = kept
	if u.ActiveTeam == teamID {
		u.ActiveTeam = ""
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Clone(), nil
}
