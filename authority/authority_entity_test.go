package authority_test

import (
	"dispatcher/authority"
	"testing"

	. "github.com/onsi/gomega"
)

func TestRolesIsPermitted(t *testing.T) {
	RegisterTestingT(t)

	dispatcherRole := authority.Role{Name: "dispatcher",
		Permissions: authority.Permissions{authority.PermOrderView, authority.PermOrderAssign, authority.PermOrderUnassign}}
	processorRole := authority.Role{Name: "processor",
		Permissions: authority.Permissions{authority.PermOrderProcess, authority.PermOrderCancel}}

	t.Run("should fail closed without roles or permissions", func(t *testing.T) {
		Expect(authority.Roles(nil).IsPermitted(authority.FirstRoleOnly, authority.PermOrderView)).To(BeFalse())
		Expect(authority.Roles{}.IsPermitted(authority.UnionOfRoles, authority.PermOrderView)).To(BeFalse())
		Expect(authority.Roles{{Name: "empty"}}.IsPermitted(authority.FirstRoleOnly, authority.PermOrderView)).To(BeFalse())
		Expect(authority.Roles{{Name: "empty"}}.IsPermitted(authority.FirstRoleOnly)).To(BeFalse())
	})

	t.Run("should require every key", func(t *testing.T) {
		roles := authority.Roles{dispatcherRole}
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderAssign)).To(BeTrue())
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderAssign, authority.PermOrderUnassign)).To(BeTrue())
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderAssign, authority.PermOrderProcess)).To(BeFalse())
		Expect(roles.IsPermitted(authority.FirstRoleOnly)).To(BeTrue())
	})

	t.Run("should only evaluate the first role with FirstRoleOnly", func(t *testing.T) {
		roles := authority.Roles{dispatcherRole, processorRole}
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderProcess)).To(BeFalse())
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderAssign)).To(BeTrue())
	})

	t.Run("should union all roles with UnionOfRoles", func(t *testing.T) {
		roles := authority.Roles{dispatcherRole, processorRole}
		Expect(roles.IsPermitted(authority.UnionOfRoles, authority.PermOrderProcess, authority.PermOrderAssign)).To(BeTrue())
		Expect(roles.EffectivePermissions(authority.UnionOfRoles)).To(HaveLen(5))
	})

	t.Run("should match permission keys case insensitively", func(t *testing.T) {
		roles := authority.Roles{{Name: "r", Permissions: authority.Permissions{"ORDER.ASIGN"}}}
		Expect(roles.IsPermitted(authority.FirstRoleOnly, authority.PermOrderAssign)).To(BeTrue())
	})
}

func TestParseRolePolicy(t *testing.T) {
	RegisterTestingT(t)

	p, err := authority.ParseRolePolicy("")
	Expect(err).To(BeNil())
	Expect(p).To(Equal(authority.FirstRoleOnly))

	p, err = authority.ParseRolePolicy(" Union ")
	Expect(err).To(BeNil())
	Expect(p).To(Equal(authority.UnionOfRoles))

	_, err = authority.ParseRolePolicy("all")
	Expect(err).ToNot(BeNil())
}
