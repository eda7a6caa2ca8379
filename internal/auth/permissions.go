package auth

import "errors"

// Роли внутри компании
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Permissions список разрешений по ролям
var Permissions = map[string][]string{
	RoleOwner: {
		"company:read",
		"company:write",
		"billing:read",
		"billing:write",
		"staff:read",
		"staff:write",
		"staff:delete",
		"locations:read",
		"locations:write",
	},
	RoleAdmin: {
		"company:read",
		"billing:read",
		"staff:read",
		"staff:write",
		"locations:read",
		"locations:write",
	},
	RoleStaff: {
		"company:read",
		"staff:read",
		"locations:read",
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role, permission string) bool {
	permissions, exists := Permissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanPerformAction проверяет может ли пользователь выполнить действие
func CanPerformAction(claims *Claims, permission string) bool {
	return HasPermission(claims.Role, permission)
}

// IsOwner проверяет является ли пользователь владельцем компании
func IsOwner(claims *Claims) bool {
	return claims.Role == RoleOwner
}

// IsAdminOrHigher проверяет является ли пользователь админом или владельцем
func IsAdminOrHigher(claims *Claims) bool {
	return claims.Role == RoleAdmin || claims.Role == RoleOwner
}

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	switch role {
	case RoleOwner, RoleAdmin, RoleStaff:
		return nil
	default:
		return errors.New("invalid role")
	}
}
