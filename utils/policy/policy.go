// Package policy centralizes authorization decisions so role and
// ownership rules live in one place instead of per-handler string checks.
package policy

import (
	"github.com/aparaitech/lms-api/model"
)

// RequireRole reports whether the user holds the given role. Admins
// satisfy every role check.
func RequireRole(user *model.User, role string) bool {
	if user == nil {
		return false
	}
	if user.Role == model.RoleAdmin {
		return true
	}
	return user.Role == role
}

// CanMutateCourse reports whether the user may update or delete the
// course: only the owning educator, or an admin.
func CanMutateCourse(user *model.User, course *model.Course) bool {
	if user == nil || course == nil {
		return false
	}
	if user.Role == model.RoleAdmin {
		return true
	}
	return user.Role == model.RoleEducator && course.EducatorID == user.ID
}
