package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	"github.com/noah-isme/college-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

// allowGate authorizes everything; used where the policy itself is not
// under test.
type allowGate struct{}

func (allowGate) Authorize(ctx context.Context, actor models.Actor, action authz.Action, target authz.Target) error {
	return nil
}

type denyGate struct{}

func (denyGate) Authorize(ctx context.Context, actor models.Actor, action authz.Action, target authz.Target) error {
	return appErrors.Clone(appErrors.ErrForbidden, "forbidden")
}

type stubStudents struct {
	students map[string]models.StudentProfile
}

func (m *stubStudents) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type stubCourses struct {
	courses map[string]models.Course
}

func (m *stubCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentRepo struct {
	active    map[string]bool
	created   *models.Enrollment
	createErr error
	listed    []models.EnrollmentDetail
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return m.listed, len(m.listed), nil
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.active[studentID+"/"+courseID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.listed, nil
}

func (m *mockEnrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	return m.listed, nil
}

func newEnrollmentFixtures() (*mockEnrollmentRepo, *stubStudents, *stubCourses) {
	repo := &mockEnrollmentRepo{active: map[string]bool{}}
	students := &stubStudents{students: map[string]models.StudentProfile{
		"stu-1": {ID: "stu-1", AccountID: "acc-stu-1", StudentNo: "S001"},
	}}
	courses := &stubCourses{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS101", FacultyID: "fac-1"},
	}}
	return repo, students, courses
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	svc := NewEnrollmentService(repo, students, courses, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	enrollment, err := svc.Enroll(context.Background(), admin, EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NotNil(t, repo.created)
}

func TestEnrollmentServiceEnrollDuplicateActive(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	repo.active["stu-1/course-1"] = true
	svc := NewEnrollmentService(repo, students, courses, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	_, err := svc.Enroll(context.Background(), admin, EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.Equal(t, "already enrolled", appErrors.FromError(err).Message)
}

// A concurrent enroll that slips past the pre-check still lands on the
// partial unique index and must surface as the same conflict.
func TestEnrollmentServiceEnrollRaceCollapsesToConflict(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	repo.createErr = repository.ErrDuplicateActiveEnrollment
	svc := NewEnrollmentService(repo, students, courses, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	_, err := svc.Enroll(context.Background(), admin, EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.Equal(t, "already enrolled", appErrors.FromError(err).Message)
}

func TestEnrollmentServiceEnrollUnknownStudent(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	svc := NewEnrollmentService(repo, students, courses, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	_, err := svc.Enroll(context.Background(), admin, EnrollRequest{StudentID: "stu-missing", CourseID: "course-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDenied(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	svc := NewEnrollmentService(repo, students, courses, denyGate{}, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	_, err := svc.Enroll(context.Background(), faculty, EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceListAdminOnly(t *testing.T) {
	repo, students, courses := newEnrollmentFixtures()
	svc := NewEnrollmentService(repo, students, courses, allowGate{}, nil, nil)

	_, _, err := svc.List(context.Background(), models.Actor{ID: "fac-1", Role: models.RoleFaculty}, models.EnrollmentFilter{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, pagination, err := svc.List(context.Background(), models.Actor{ID: "acc-admin", Role: models.RoleAdmin}, models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Page)
}
