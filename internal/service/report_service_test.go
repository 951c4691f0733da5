package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type mockStatsRepo struct {
	stats      models.AttendanceStats
	statsCalls int
	sheet      []models.AttendanceSheetEntry
}

func (m *mockStatsRepo) Stats(ctx context.Context) (*models.AttendanceStats, error) {
	m.statsCalls++
	stats := m.stats
	return &stats, nil
}

func (m *mockStatsRepo) SheetForDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceSheetEntry, error) {
	return m.sheet, nil
}

type mockDashboardRepo struct {
	students, courses, faculty, enrollments int
}

func (m *mockDashboardRepo) StudentCount(ctx context.Context) (int, error)    { return m.students, nil }
func (m *mockDashboardRepo) CourseCount(ctx context.Context) (int, error)     { return m.courses, nil }
func (m *mockDashboardRepo) FacultyCount(ctx context.Context) (int, error)    { return m.faculty, nil }
func (m *mockDashboardRepo) EnrollmentCount(ctx context.Context) (int, error) { return m.enrollments, nil }

type memCache struct {
	entries map[string][]byte
	deletes []string
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	delete(m.entries, key)
	return nil
}

var adminActor = models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

func TestReportServiceStatsRate(t *testing.T) {
	repo := &mockStatsRepo{stats: models.AttendanceStats{Total: 10, Present: 7, Absent: 2, Late: 1}}
	svc := NewReportService(repo, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	stats, err := svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	require.InDelta(t, 70.00, stats.Rate, 0.001)
}

func TestReportServiceStatsEmptyRegister(t *testing.T) {
	repo := &mockStatsRepo{stats: models.AttendanceStats{}}
	svc := NewReportService(repo, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	stats, err := svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	require.Zero(t, stats.Rate)
}

func TestReportServiceStatsCached(t *testing.T) {
	repo := &mockStatsRepo{stats: models.AttendanceStats{Total: 3, Present: 3}}
	cache := &memCache{}
	svc := NewReportService(repo, &mockDashboardRepo{}, cache, time.Minute, allowGate{}, nil)

	_, err := svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	_, err = svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	require.Equal(t, 1, repo.statsCalls)

	svc.InvalidateStats(context.Background())
	require.Contains(t, cache.deletes, statsCacheKey)

	_, err = svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	require.Equal(t, 2, repo.statsCalls)
}

func TestReportServiceStatsDenied(t *testing.T) {
	repo := &mockStatsRepo{}
	svc := NewReportService(repo, &mockDashboardRepo{}, &memCache{}, time.Minute, denyGate{}, nil)

	_, err := svc.Stats(context.Background(), models.Actor{ID: "fac-1", Role: models.RoleFaculty})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.Zero(t, repo.statsCalls)
}

func TestReportServiceDashboard(t *testing.T) {
	dash := &mockDashboardRepo{students: 12, courses: 4, faculty: 3, enrollments: 20}
	svc := NewReportService(&mockStatsRepo{}, dash, &memCache{}, time.Minute, allowGate{}, nil)

	counts, err := svc.Dashboard(context.Background(), adminActor)
	require.NoError(t, err)
	require.Equal(t, 12, counts.Students)
	require.Equal(t, 4, counts.Courses)
	require.Equal(t, 3, counts.Faculty)
	require.Equal(t, 20, counts.Enrollments)
}

func TestReportServiceExportStatsCSV(t *testing.T) {
	repo := &mockStatsRepo{stats: models.AttendanceStats{Total: 4, Present: 3, Absent: 1}}
	svc := NewReportService(repo, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	payload, mimeType, err := svc.ExportStats(context.Background(), adminActor, "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", mimeType)

	body := string(payload)
	require.True(t, strings.HasPrefix(body, "Total,Present,Absent,Late,Rate"))
	require.Contains(t, body, "75.00")
}

func TestReportServiceExportSheetPDF(t *testing.T) {
	present := models.AttendanceStatusPresent
	repo := &mockStatsRepo{sheet: []models.AttendanceSheetEntry{
		{StudentID: "stu-1", StudentNo: "S001", StudentName: "Ada Lovelace", Status: &present},
		{StudentID: "stu-2", StudentNo: "S002", StudentName: "Alan Turing"},
	}}
	svc := NewReportService(repo, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	payload, mimeType, err := svc.ExportSheet(context.Background(), adminActor, "course-1", "2025-09-01", "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", mimeType)
	require.True(t, len(payload) > 0)
}

func TestReportServiceExportUnsupportedFormat(t *testing.T) {
	svc := NewReportService(&mockStatsRepo{}, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	_, _, err := svc.ExportStats(context.Background(), adminActor, "xlsx")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPresenceRateRounding(t *testing.T) {
	require.InDelta(t, 66.67, presenceRate(2, 3), 0.001)
	require.InDelta(t, 33.33, presenceRate(1, 3), 0.001)
	require.Zero(t, presenceRate(0, 0))
	require.InDelta(t, 100, presenceRate(5, 5), 0.001)
}

func TestReportServiceExportSheetInvalidDate(t *testing.T) {
	svc := NewReportService(&mockStatsRepo{}, &mockDashboardRepo{}, &memCache{}, time.Minute, allowGate{}, nil)

	_, _, err := svc.ExportSheet(context.Background(), adminActor, "course-1", "september 1st", "csv")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
