package rbac

import (
	"testing"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

func TestCanApprove_Hierarchy(t *testing.T) {
	g := NewGate()

	roles := []domain.Role{
		domain.RoleViewer,
		domain.RoleOperator,
		domain.RoleDeployer,
		domain.RoleAdmin,
	}

	// Роль может одобрять свой уровень и всё ниже, и ничего выше
	for i, user := range roles {
		for j, required := range roles {
			want := i >= j
			if got := g.CanApprove(user, required); got != want {
				t.Errorf("CanApprove(%s, %s) = %v, want %v", user, required, got, want)
			}
		}
	}
}

func TestCanApprove_UnknownRoles(t *testing.T) {
	g := NewGate()

	if g.CanApprove("Superuser", domain.RoleViewer) {
		t.Error("unknown user role must not approve anything")
	}
	if g.CanApprove(domain.RoleAdmin, "Ghost") {
		t.Error("unknown required role must not be approvable")
	}
	if g.CanApprove("", "") {
		t.Error("empty roles must fail")
	}
}
