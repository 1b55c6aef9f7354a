// Package rbac реализует role-based gate для approval-операций.
package rbac

import (
	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Gate отвечает на вопрос "может ли роль R одобрить checkpoint,
// требующий роль X". Иерархия ролей — фиксированный полный порядок
// (domain.Role.Level): роль может одобрять checkpoints, требующие её
// уровень или ниже.
type Gate struct{}

// NewGate создаёт Gate со стандартной иерархией ролей.
func NewGate() *Gate {
	return &Gate{}
}

// CanApprove возвращает true, если userRole достаточно привилегированна
// для requiredRole. Неизвестные роли не могут одобрить ничего и не
// могут требоваться.
func (g *Gate) CanApprove(userRole, requiredRole domain.Role) bool {
	if !userRole.IsValid() || !requiredRole.IsValid() {
		return false
	}
	return userRole.Level() >= requiredRole.Level()
}
