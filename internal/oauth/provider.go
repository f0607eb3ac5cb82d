// Package oauth implements the sign-in providers: GitHub through plain OAuth2
// and Google through OpenID Connect.
package oauth

import (
	"context"
	"sort"
)

// Identity is the account information returned by a provider.
type Identity struct {
	Provider string
	ID       string
	Email    string
	Name     string
}

// Provider drives the authorization-code flow of one identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Registry holds the configured providers by name.
type Registry map[string]Provider

func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

func (r Registry) Get(name string) (Provider, bool) {
	p, ok := r[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
