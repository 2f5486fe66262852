package session

import (
	"dispatcher/authority"
	"fmt"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// TokenFile is the yaml document the external auth service hands over:
//
//	roles:
//	  dispatcher: [order.view, order.asign, order.unasign]
//	tokens:
//	  - token: abc
//	    id: 10
//	    name: alice
//	    roles: [dispatcher]
type TokenFile struct {
	Roles  map[string][]string `yaml:"roles"`
	Tokens []TokenEntry        `yaml:"tokens"`
}

type TokenEntry struct {
	Token    string   `yaml:"token"`
	ID       uint64   `yaml:"id"`
	Name     string   `yaml:"name"`
	Nickname string   `yaml:"nickname"`
	Roles    []string `yaml:"roles"`
}

func ParseTokenFile(data []byte, policy authority.RolePolicy) ([]*Session, error) {
	doc := TokenFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var sessions []*Session
	for i, entry := range doc.Tokens {
		if entry.Token == "" {
			return nil, fmt.Errorf("token entry %d: empty token", i)
		}
		s := &Session{
			Token:    entry.Token,
			Identity: Identity{ID: types.ID(entry.ID), Name: entry.Name, Nickname: entry.Nickname},
			Policy:   policy,
		}
		for _, roleName := range entry.Roles {
			perms, found := doc.Roles[roleName]
			if !found {
				return nil, fmt.Errorf("token entry %d: unknown role '%s'", i, roleName)
			}
			s.Roles = append(s.Roles, authority.Role{Name: roleName, Permissions: perms})
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// LoadTokenFile registers every session declared in the file and returns how many were loaded.
func LoadTokenFile(path string, policy authority.RolePolicy) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	sessions, err := ParseTokenFile(data, policy)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		RegisterToken(s, cache.NoExpiration)
	}
	logrus.WithField("file", path).Infof("%d session tokens loaded", len(sessions))
	return len(sessions), nil
}
