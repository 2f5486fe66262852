package authority

import (
	"fmt"
	"strings"
)

const (
	PermOrderView     = "order.view"
	PermOrderProcess  = "order.process"
	PermOrderAssign   = "order.asign"
	PermOrderUnassign = "order.unasign"
	PermOrderCancel   = "order.cancel"
)

type Permissions []string

func (c Permissions) HasPerm(perm string) bool {
	for _, v := range c {
		if strings.EqualFold(v, perm) {
			return true
		}
	}
	return false
}

func (c Permissions) HasAll(perms ...string) bool {
	for _, perm := range perms {
		if !c.HasPerm(perm) {
			return false
		}
	}
	return true
}

// Role owns an ordered permission key list.
type Role struct {
	Name        string      `json:"name" yaml:"name"`
	Permissions Permissions `json:"permissions" yaml:"permissions"`
}

type Roles []Role

// RolePolicy decides which roles of an identity contribute permissions.
type RolePolicy string

const (
	// FirstRoleOnly evaluates the first role of the list, the rest are ignored.
	FirstRoleOnly = RolePolicy("first")
	// UnionOfRoles evaluates the union of permissions over all roles.
	UnionOfRoles = RolePolicy("union")
)

func ParseRolePolicy(s string) (RolePolicy, error) {
	switch RolePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FirstRoleOnly:
		return FirstRoleOnly, nil
	case UnionOfRoles:
		return UnionOfRoles, nil
	default:
		return "", fmt.Errorf("invalid role policy '%s'", s)
	}
}

// EffectivePermissions returns the permission set the policy grants, nil when there is nothing to evaluate.
func (r Roles) EffectivePermissions(policy RolePolicy) Permissions {
	if len(r) == 0 {
		return nil
	}
	switch policy {
	case UnionOfRoles:
		var perms Permissions
		for _, role := range r {
			for _, p := range role.Permissions {
				if !perms.HasPerm(p) {
					perms = append(perms, p)
				}
			}
		}
		return perms
	case FirstRoleOnly:
		return r[0].Permissions
	default:
		return nil
	}
}

// IsPermitted is true iff every required key is held. It fails closed on an empty role list or permission set.
func (r Roles) IsPermitted(policy RolePolicy, requiredKeys ...string) bool {
	perms := r.EffectivePermissions(policy)
	if len(perms) == 0 {
		return false
	}
	return perms.HasAll(requiredKeys...)
}
