package session

import (
	"context"
	"dispatcher/authority"
	"time"

	"github.com/fundwit/go-commons/types"
)

// Session is the acting identity of one dispatch request, passed explicitly into every operation.
type Session struct {
	Context context.Context `json:"-"`

	Token    string               `json:"token"`
	Identity Identity             `json:"identity"`
	Roles    authority.Roles      `json:"roles"`
	Policy   authority.RolePolicy `json:"policy"`

	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

// DisplayName prefers the nickname.
func (i Identity) DisplayName() string {
	if i.Nickname != "" {
		return i.Nickname
	}
	return i.Name
}

func (s *Session) IsPermitted(requiredKeys ...string) bool {
	if s == nil {
		return false
	}
	policy := s.Policy
	if policy == "" {
		policy = authority.FirstRoleOnly
	}
	return s.Roles.IsPermitted(policy, requiredKeys...)
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Identity.ID != 0
}

func (s Session) Clone() Session {
	c := s
	if s.Roles != nil {
		c.Roles = make(authority.Roles, len(s.Roles))
		for i, r := range s.Roles {
			c.Roles[i] = authority.Role{Name: r.Name, Permissions: append(authority.Permissions(nil), r.Permissions...)}
		}
	}
	return c
}

// Ctx never returns nil.
func (s *Session) Ctx() context.Context {
	if s == nil || s.Context == nil {
		return context.Background()
	}
	return s.Context
}
