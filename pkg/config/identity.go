package config

import (
	"fmt"

	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/identity"
)

// CreateUserStore builds an identity.Store from the users section.
//
// The configuration type stays separate from the identity type so the
// file format can evolve without touching the authentication path.
func (c *Config) CreateUserStore() (*identity.Store, error) {
	users := make([]identity.User, 0, len(c.Users))
	seen := make(map[string]struct{}, len(c.Users))

	for _, uc := range c.Users {
		if uc.Username == "" {
			return nil, fmt.Errorf("user with empty username in users section")
		}
		if uc.PasswordHash == "" {
			return nil, fmt.Errorf("user %q has no password hash; set one with 'computeserver user passwd %s'", uc.Username, uc.Username)
		}
		if _, dup := seen[uc.Username]; dup {
			return nil, fmt.Errorf("duplicate user %q in users section", uc.Username)
		}
		seen[uc.Username] = struct{}{}

		users = append(users, identity.User{
			Username:     uc.Username,
			PasswordHash: uc.PasswordHash,
			Enabled:      !uc.Disabled,
		})
	}

	return identity.NewStore(users), nil
}
