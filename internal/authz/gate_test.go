package authz

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	students map[string]models.StudentProfile
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newTestGate() *Gate {
	courses := &mockCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS101", FacultyID: "fac-1"},
		"course-2": {ID: "course-2", Code: "CS102", FacultyID: "fac-2"},
	}}
	students := &mockStudentReader{students: map[string]models.StudentProfile{
		"stu-1": {ID: "stu-1", AccountID: "acc-stu-1"},
		"stu-2": {ID: "stu-2", AccountID: "acc-stu-2"},
	}}
	return NewGate(courses, students)
}

func TestGatePolicyTable(t *testing.T) {
	gate := newTestGate()
	ctx := context.Background()

	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}
	student := models.Actor{ID: "acc-stu-1", Role: models.RoleStudent}

	tests := []struct {
		name     string
		actor    models.Actor
		action   Action
		target   Target
		wantCode string
	}{
		{"admin creates accounts", admin, ActionCreateAccount, Target{}, ""},
		{"admin creates enrollments", admin, ActionCreateEnrollment, Target{}, ""},
		{"admin reads any course attendance", admin, ActionReadAttendance, Target{CourseID: "course-2"}, ""},
		{"admin cannot mark attendance", admin, ActionMarkAttendance, Target{CourseID: "course-1"}, appErrors.ErrForbidden.Code},

		{"faculty marks own course", faculty, ActionMarkAttendance, Target{CourseID: "course-1"}, ""},
		{"faculty cannot mark foreign course", faculty, ActionMarkAttendance, Target{CourseID: "course-2"}, appErrors.ErrForbidden.Code},
		{"faculty cannot create courses", faculty, ActionCreateCourse, Target{}, appErrors.ErrForbidden.Code},
		{"faculty cannot reach student-scoped reads", faculty, ActionReadEnrollment, Target{StudentID: "stu-1"}, appErrors.ErrForbidden.Code},
		{"faculty marking missing course is not found", faculty, ActionMarkAttendance, Target{CourseID: "course-9"}, appErrors.ErrNotFound.Code},

		{"student reads own profile", student, ActionReadStudent, Target{StudentID: "stu-1"}, ""},
		{"student cannot read another profile", student, ActionReadStudent, Target{StudentID: "stu-2"}, appErrors.ErrForbidden.Code},
		{"student cannot mark attendance", student, ActionMarkAttendance, Target{CourseID: "course-1"}, appErrors.ErrForbidden.Code},
		{"student cannot enroll", student, ActionCreateEnrollment, Target{}, appErrors.ErrForbidden.Code},
		{"student needs a student target", student, ActionReadAttendance, Target{}, appErrors.ErrForbidden.Code},

		{"unknown role denied", models.Actor{ID: "x", Role: "GHOST"}, ActionReadCourse, Target{}, appErrors.ErrForbidden.Code},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := gate.Authorize(ctx, tc.actor, tc.action, tc.target)
			if tc.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
}

// Ownership must hold at evaluation time, not at token issuance. A course
// handed to another instructor stops being markable by the old one.
func TestGateOwnershipReverifiedPerCall(t *testing.T) {
	courses := &mockCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", FacultyID: "fac-1"},
	}}
	students := &mockStudentReader{}
	gate := NewGate(courses, students)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	require.NoError(t, gate.Authorize(context.Background(), faculty, ActionMarkAttendance, Target{CourseID: "course-1"}))

	courses.courses["course-1"] = models.Course{ID: "course-1", FacultyID: "fac-other"}

	err := gate.Authorize(context.Background(), faculty, ActionMarkAttendance, Target{CourseID: "course-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
