package authz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

// Action identifies a core operation subject to the authorization policy.
type Action string

const (
	ActionCreateAccount    Action = "account:create"
	ActionReadAccount      Action = "account:read"
	ActionReadCourse       Action = "course:read"
	ActionCreateCourse     Action = "course:create"
	ActionCreateEnrollment Action = "enrollment:create"
	ActionReadEnrollment   Action = "enrollment:read"
	ActionMarkAttendance   Action = "attendance:mark"
	ActionReadAttendance   Action = "attendance:read"
	ActionReadStudent      Action = "student:read"
	ActionReadReports      Action = "reports:read"
)

// Target scopes an action to a specific course or student. A zero Target
// means the action is not bound to a particular resource.
type Target struct {
	CourseID  string
	StudentID string
}

// grants is the role capability table. An action absent from a role's set
// is denied outright; scoped actions additionally pass an ownership check.
var grants = map[models.Role]map[Action]struct{}{
	models.RoleAdmin: {
		ActionCreateAccount:    {},
		ActionReadAccount:      {},
		ActionReadCourse:       {},
		ActionCreateCourse:     {},
		ActionCreateEnrollment: {},
		ActionReadEnrollment:   {},
		ActionReadAttendance:   {},
		ActionReadStudent:      {},
		ActionReadReports:      {},
	},
	models.RoleFaculty: {
		ActionReadCourse:     {},
		ActionReadEnrollment: {},
		ActionMarkAttendance: {},
		ActionReadAttendance: {},
	},
	models.RoleStudent: {
		ActionReadStudent:    {},
		ActionReadEnrollment: {},
		ActionReadAttendance: {},
	},
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
}

// Gate evaluates the role policy plus per-resource ownership. Ownership is
// re-verified against the store on every call; nothing is cached between
// requests.
type Gate struct {
	courses  courseReader
	students studentReader
}

// NewGate constructs the authorization gate.
func NewGate(courses courseReader, students studentReader) *Gate {
	return &Gate{courses: courses, students: students}
}

// Authorize returns nil when the actor may perform the action against the
// target, ErrForbidden otherwise. Missing referenced resources surface as
// ErrNotFound so callers can distinguish them from policy denials.
func (g *Gate) Authorize(ctx context.Context, actor models.Actor, action Action, target Target) error {
	roleGrants, ok := grants[actor.Role]
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}
	if _, ok := roleGrants[action]; !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleFaculty:
		return g.checkCourseOwnership(ctx, actor, target)
	case models.RoleStudent:
		return g.checkStudentOwnership(ctx, actor, target)
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}
}

func (g *Gate) checkCourseOwnership(ctx context.Context, actor models.Actor, target Target) error {
	if target.CourseID == "" {
		if target.StudentID != "" {
			// Student-scoped targets are never faculty territory.
			return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
		}
		// Unscoped faculty reads are narrowed by the caller to owned
		// courses; nothing to verify here.
		return nil
	}
	course, err := g.courses.FindByID(ctx, target.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.FacultyID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}
	return nil
}

func (g *Gate) checkStudentOwnership(ctx context.Context, actor models.Actor, target Target) error {
	if target.StudentID == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}
	student, err := g.students.FindByID(ctx, target.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.AccountID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}
	return nil
}
