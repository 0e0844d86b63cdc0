package analysis

import (
	"strings"

	"github.com/hpungsan/lexis/internal/errors"
)

// Permission is the closed set of access levels a share grants.
type Permission string

const (
	PermissionViewOnly     Permission = "view-only"
	PermissionAllowReshare Permission = "allow-reshare"
)

// ParsePermission maps user input to a Permission. Empty input means view-only.
func ParsePermission(s string) (Permission, error) {
	switch Permission(strings.ToLower(strings.TrimSpace(s))) {
	case "", PermissionViewOnly:
		return PermissionViewOnly, nil
	case PermissionAllowReshare:
		return PermissionAllowReshare, nil
	default:
		return "", errors.NewValidation("permission must be one of: view-only, allow-reshare")
	}
}

// CanReshare reports whether the holder may share the source onward.
func (p Permission) CanReshare() bool {
	return p == PermissionAllowReshare
}
