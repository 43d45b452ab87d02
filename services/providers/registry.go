package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound is returned when a role has no provider assigned
	ErrProviderNotFound = errors.New("provider not found")

	// ErrDuplicateProvider is returned when both roles point at the same provider
	ErrDuplicateProvider = errors.New("primary and secondary provider must differ")
)

// Role is the position a provider holds in a failover pair
type Role int

const (
	// RolePrimary serves requests while the failure rate stays under the threshold
	RolePrimary Role = iota
	// RoleSecondary serves requests during failover and as the single fallback hop
	RoleSecondary
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Pair is the fixed primary/secondary provider set one failover tracker guards
type Pair struct {
	Primary   Provider
	Secondary Provider
}

// NewPair creates a validated provider pair
func NewPair(primary, secondary Provider) (Pair, error) {
	p := Pair{Primary: primary, Secondary: secondary}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// Validate checks that both roles are filled by distinct providers
func (p Pair) Validate() error {
	if p.Primary == nil {
		return fmt.Errorf("%s: %w", RolePrimary, ErrProviderNotFound)
	}
	if p.Secondary == nil {
		return fmt.Errorf("%s: %w", RoleSecondary, ErrProviderNotFound)
	}
	if p.Primary.Name() == p.Secondary.Name() {
		return ErrDuplicateProvider
	}
	return nil
}

// For returns the provider holding the given role
func (p Pair) For(role Role) (Provider, error) {
	var provider Provider
	switch role {
	case RolePrimary:
		provider = p.Primary
	case RoleSecondary:
		provider = p.Secondary
	}
	if provider == nil {
		return nil, fmt.Errorf("%s: %w", role, ErrProviderNotFound)
	}
	return provider, nil
}

// Names returns the provider names keyed by role name
func (p Pair) Names() map[string]string {
	names := make(map[string]string, 2)
	if p.Primary != nil {
		names[RolePrimary.String()] = p.Primary.Name()
	}
	if p.Secondary != nil {
		names[RoleSecondary.String()] = p.Secondary.Name()
	}
	return names
}
