package utils

import (
	"testing"

	"dostavka/internal/constants"
)

func TestIsRoleOrHigher(t *testing.T) {
	cases := []struct {
		userRole     string
		requiredRole string
		want         bool
	}{
		{constants.ROLE_DRIVER, constants.ROLE_DRIVER, true},
		{constants.ROLE_OPERATOR, constants.ROLE_DRIVER, true},
		{constants.ROLE_OWNER, constants.ROLE_OPERATOR, true},
		{constants.ROLE_DRIVER, constants.ROLE_OPERATOR, false},
		{constants.ROLE_OPERATOR, constants.ROLE_OWNER, false},
		{"", constants.ROLE_DRIVER, false},
		{constants.ROLE_DRIVER, "unknown", false},
	}
	for _, c := range cases {
		got := IsRoleOrHigher(c.userRole, c.requiredRole)
		if got != c.want {
			t.Errorf("IsRoleOrHigher(%q, %q) = %v, want %v", c.userRole, c.requiredRole, got, c.want)
		}
	}
}
