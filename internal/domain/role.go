package domain

// Role — роль оператора в иерархии привилегий.
//
// Иерархия фиксированная и полная (от старшей к младшей):
//
//	Admin > Deployer > Operator > Viewer
//
// Сравнение ролей — единственная операция авторизации;
// она выполняется через числовой уровень (Level), а не через
// сравнение строк.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleDeployer Role = "Deployer"
	RoleOperator Role = "Operator"
	RoleViewer   Role = "Viewer"
)

// roleLevels — числовые уровни привилегий. Больше — привилегированнее.
var roleLevels = map[Role]int{
	RoleAdmin:    4,
	RoleDeployer: 3,
	RoleOperator: 2,
	RoleViewer:   1,
}

// Level возвращает числовой уровень привилегий роли.
// Неизвестная роль имеет уровень 0 — ниже любой известной.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsValid возвращает true, если роль входит в иерархию.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// ParseRole парсит строку в Role. Неизвестная строка
// возвращает пустую роль (невалидную).
func ParseRole(s string) Role {
	r := Role(s)
	if r.IsValid() {
		return r
	}
	return ""
}
