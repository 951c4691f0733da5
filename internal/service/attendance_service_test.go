package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type mockAttendanceRepo struct {
	upserted *models.AttendanceRecord
	existing map[string]models.AttendanceRecord
	sheet    []models.AttendanceSheetEntry
	history  []models.AttendanceHistoryRow
}

func attendanceKey(studentID, courseID string, date time.Time) string {
	return studentID + "/" + courseID + "/" + date.Format(DateLayout)
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	key := attendanceKey(record.StudentID, record.CourseID, record.Date)
	stored := *record
	if prev, ok := m.existing[key]; ok {
		// Conflict path: keep identity and creation time of the first mark.
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	}
	if m.existing == nil {
		m.existing = make(map[string]models.AttendanceRecord)
	}
	m.existing[key] = stored
	m.upserted = &stored
	return &stored, nil
}

func (m *mockAttendanceRepo) SheetForDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceSheetEntry, error) {
	return m.sheet, nil
}

func (m *mockAttendanceRepo) HistoryForStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error) {
	return m.history, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateStats(ctx context.Context) {
	m.calls++
}

func newAttendanceFixtures() (*mockAttendanceRepo, *stubStudents, *mockInvalidator) {
	repo := &mockAttendanceRepo{}
	students := &stubStudents{students: map[string]models.StudentProfile{
		"stu-1": {ID: "stu-1", StudentNo: "S001"},
	}}
	return repo, students, &mockInvalidator{}
}

func TestAttendanceServiceMark(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	record, err := svc.Mark(context.Background(), faculty, MarkAttendanceRequest{
		StudentID: "stu-1",
		CourseID:  "course-1",
		Date:      "2025-09-01",
		Status:    "present",
	})
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusPresent, record.Status)
	require.Equal(t, "fac-1", record.MarkedBy)
	require.Equal(t, 1, invalidator.calls)
}

// Marking the same (student, course, date) again amends the status rather
// than producing a second record.
func TestAttendanceServiceRemarkOverwritesStatus(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	req := MarkAttendanceRequest{StudentID: "stu-1", CourseID: "course-1", Date: "2025-09-01", Status: "present"}
	first, err := svc.Mark(context.Background(), faculty, req)
	require.NoError(t, err)

	req.Status = "late"
	second, err := svc.Mark(context.Background(), faculty, req)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, models.AttendanceStatusLate, second.Status)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.Equal(t, 2, invalidator.calls)
}

func TestAttendanceServiceMarkInvalidDate(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	_, err := svc.Mark(context.Background(), faculty, MarkAttendanceRequest{
		StudentID: "stu-1",
		CourseID:  "course-1",
		Date:      "01/09/2025",
		Status:    "present",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Equal(t, 0, invalidator.calls)
}

func TestAttendanceServiceMarkInvalidStatus(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	_, err := svc.Mark(context.Background(), faculty, MarkAttendanceRequest{
		StudentID: "stu-1",
		CourseID:  "course-1",
		Date:      "2025-09-01",
		Status:    "vacationing",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkUnknownStudent(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	_, err := svc.Mark(context.Background(), faculty, MarkAttendanceRequest{
		StudentID: "stu-missing",
		CourseID:  "course-1",
		Date:      "2025-09-01",
		Status:    "absent",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceSheetInvalidDate(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	_, err := svc.SheetForDate(context.Background(), admin, "course-1", "not-a-date")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceSheetIncludesUnmarked(t *testing.T) {
	repo, students, invalidator := newAttendanceFixtures()
	present := models.AttendanceStatusPresent
	repo.sheet = []models.AttendanceSheetEntry{
		{StudentID: "stu-1", StudentNo: "S001", StudentName: "Ada Lovelace", Status: &present},
		{StudentID: "stu-2", StudentNo: "S002", StudentName: "Alan Turing", Status: nil},
	}
	svc := NewAttendanceService(repo, students, allowGate{}, invalidator, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	entries, err := svc.SheetForDate(context.Background(), admin, "course-1", "2025-09-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Nil(t, entries[1].Status)
}
