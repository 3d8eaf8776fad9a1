package course

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

var (
	ErrNotEnrolled      = core.NewPermissionError("You are not enrolled in this course.")
	ErrNotOwner         = core.NewPermissionError("You are not the owner of this object.")
	ErrNotGlobalTeacher = core.NewPermissionError("Only teacher account can perform this action.")
	ErrNotCourseTeacher = core.NewPermissionError("You are not a teacher in this course.")
	ErrNotCourseStudent = core.NewPermissionError("You are not a student in this course.")
	ErrWorkNotEditable  = core.NewPermissionError("This StudentWork is submitted or graded and therefore cannot be editable.")
	ErrTaskNotActive    = core.NewPermissionError("This task is archived or not published yet.")
	ErrActionNotAllowed = core.NewPermissionError("This action is not allowed.")

	// contract violations, never mapped to a client-facing status
	errMemberNotResolved = errors.New("course member was not resolved on the request")
	errTaskNotResolved   = errors.New("task was not resolved on the request")
)

// AccessRequest carries the authorization inputs of one request: the
// authenticated user, their membership in the resolved course (nil when not
// enrolled) and the resolved task, if any.
type AccessRequest struct {
	User   user.User
	Member *CourseMember
	Task   *Task
	Method string
}

// Predicate is a single authorization rule. A nil result grants access; the
// returned error names the first unmet requirement.
type Predicate func(req AccessRequest) error

// AllOf grants access only when every predicate does.
func AllOf(preds ...Predicate) Predicate {
	return func(req AccessRequest) error {
		for _, pred := range preds {
			if err := pred(req); err != nil {
				return err
			}
		}
		return nil
	}
}

// AnyOf grants access when at least one predicate does; otherwise it returns
// the first failure.
func AnyOf(preds ...Predicate) Predicate {
	return func(req AccessRequest) error {
		var first error
		for _, pred := range preds {
			err := pred(req)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		return first
	}
}

func isSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func methodIn(method string, methods []string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// IsGlobalTeacher requires a teacher account profile, regardless of any
// per-course role.
func IsGlobalTeacher(req AccessRequest) error {
	if !req.User.IsTeacher() {
		return ErrNotGlobalTeacher
	}
	return nil
}

// IsGlobalTeacherOrReadOnly lets anyone read but reserves writes for teacher
// accounts.
func IsGlobalTeacherOrReadOnly(req AccessRequest) error {
	if isSafe(req.Method) {
		return nil
	}
	return IsGlobalTeacher(req)
}

// IsTeacher requires a teacher membership in the resolved course. A missing
// membership here is a routing bug, not a client error.
func IsTeacher(req AccessRequest) error {
	if req.Member == nil {
		return errMemberNotResolved
	}
	if !req.Member.IsTeacher() {
		return ErrNotCourseTeacher
	}
	return nil
}

// IsStudent requires a student membership in the resolved course.
func IsStudent(req AccessRequest) error {
	if req.Member == nil {
		return errMemberNotResolved
	}
	if !req.Member.IsStudent() {
		return ErrNotCourseStudent
	}
	return nil
}

// IsTeacherOr requires a teacher membership unless the request method is in
// the allowed list.
func IsTeacherOr(methods ...string) Predicate {
	return func(req AccessRequest) error {
		if methodIn(req.Method, methods) {
			return nil
		}
		return IsTeacher(req)
	}
}

// IsStudentOr requires a student membership unless the request method is in
// the allowed list.
func IsStudentOr(methods ...string) Predicate {
	return func(req AccessRequest) error {
		if methodIn(req.Method, methods) {
			return nil
		}
		return IsStudent(req)
	}
}

// IsActiveTask blocks student activity on archived or still planned tasks.
func IsActiveTask(req AccessRequest) error {
	if req.Task == nil {
		return errTaskNotResolved
	}
	if !req.Task.IsActive() {
		return ErrTaskNotActive
	}
	return nil
}

// MemberOwnerOr grants requests with an allowed method to anyone; everything
// else is reserved for the course member that owns the object. Ownership of
// course-scoped objects always compares memberships so that a user's role at
// the time of writing stays authoritative.
func MemberOwnerOr(obj MemberOwned, methods ...string) Predicate {
	return func(req AccessRequest) error {
		if methodIn(req.Method, methods) {
			return nil
		}
		if req.Member == nil {
			return errMemberNotResolved
		}
		if obj.OwnerMemberID() != req.Member.ID {
			return ErrNotOwner
		}
		return nil
	}
}

// UserOwnerOr is MemberOwnerOr for objects owned directly by a user account
// (courses and memberships themselves).
func UserOwnerOr(obj UserOwned, methods ...string) Predicate {
	return func(req AccessRequest) error {
		if methodIn(req.Method, methods) {
			return nil
		}
		if obj.OwnerUserID() != req.User.ID {
			return ErrNotOwner
		}
		return nil
	}
}

// NotMethod denies the given method outright. Combined with ownership or role
// predicates it carves single operations out of an otherwise granted set.
func NotMethod(method string) Predicate {
	return func(req AccessRequest) error {
		if req.Method == method {
			return ErrActionNotAllowed
		}
		return nil
	}
}

// IsEditableWork only lets assigned (not submitted, not graded) work be
// modified.
func IsEditableWork(w StudentWork) Predicate {
	return func(req AccessRequest) error {
		if w.Status != WorkAssigned {
			return ErrWorkNotEditable
		}
		return nil
	}
}
