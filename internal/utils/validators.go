package utils

import (
	"dostavka/internal/constants"
)

// IsRoleOrHigher проверяет, что роль пользователя не ниже требуемой.
func IsRoleOrHigher(userRole string, requiredRole string) bool {
	userLevel, okUser := constants.RoleHierarchy[userRole]
	requiredLevel, okRequired := constants.RoleHierarchy[requiredRole]
	if !okUser || !okRequired {
		return false
	}
	return userLevel >= requiredLevel
}
