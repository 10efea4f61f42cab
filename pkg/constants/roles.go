package constants

// Коды ролей пользователей. Совпадают с колонкой role в таблице users
// и с claim'ом role в JWT.
const (
	RoleClient  = "CLIENT"
	RoleManager = "MANAGER"
	RoleCourier = "COURIER"
	RoleAdmin   = "ADMIN"
)

// AssignableRole — закрытый перечень ролей, которые админ может
// назначать/снимать на заказе. Сырые числовые коды из payload'ов не принимаем.
type AssignableRole string

const (
	AssignManager AssignableRole = "manager"
	AssignCourier AssignableRole = "courier"
)

func ParseAssignableRole(s string) (AssignableRole, bool) {
	switch AssignableRole(s) {
	case AssignManager, AssignCourier:
		return AssignableRole(s), true
	}
	return "", false
}
