package rbac

import "testing"

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(DefaultRoles())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func TestAdminHasEverything(t *testing.T) {
	p := newTestPolicy(t)
	for _, perm := range []Permission{PermAuditView, PermUsersManage, PermCatalogManage, PermAuthRegisterAdmin, PermDocumentsManage} {
		if !p.Allowed([]string{RoleAdmin}, perm) {
			t.Fatalf("admin should have %s", perm)
		}
	}
}

func TestMembersGetDocumentsButNotAdminAreas(t *testing.T) {
	p := newTestPolicy(t)
	for _, role := range []string{RoleUser, RoleManager} {
		if !p.Allowed([]string{role}, PermDocumentsView) || !p.Allowed([]string{role}, PermVersionsManage) {
			t.Fatalf("%s should reach document routes", role)
		}
		if !p.Allowed([]string{role}, PermCatalogView) {
			t.Fatalf("%s should view catalog", role)
		}
		for _, perm := range []Permission{PermAuditView, PermUsersManage, PermCatalogManage, PermAuthRegisterAdmin} {
			if p.Allowed([]string{role}, perm) {
				t.Fatalf("%s must not have %s", role, perm)
			}
		}
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	p := newTestPolicy(t)
	if p.Allowed([]string{"guest"}, PermDocumentsView) {
		t.Fatalf("unknown roles must be denied")
	}
	if p.Allowed(nil, PermDocumentsView) {
		t.Fatalf("no roles must be denied")
	}
	var nilPolicy *Policy
	if nilPolicy.Allowed([]string{RoleAdmin}, PermAuditView) {
		t.Fatalf("nil policy denies")
	}
}
