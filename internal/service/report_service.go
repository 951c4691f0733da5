package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
	"github.com/noah-isme/college-attendance-api/pkg/export"
)

const statsCacheKey = "reports:attendance:stats"

type attendanceStatsRepository interface {
	Stats(ctx context.Context) (*models.AttendanceStats, error)
	SheetForDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceSheetEntry, error)
}

type dashboardRepository interface {
	StudentCount(ctx context.Context) (int, error)
	CourseCount(ctx context.Context) (int, error)
	FacultyCount(ctx context.Context) (int, error)
	EnrollmentCount(ctx context.Context) (int, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ReportService computes derived aggregate views over the register and the
// ledger. Pure read-side; holds no state beyond the cache.
type ReportService struct {
	attendance attendanceStatsRepository
	dashboard  dashboardRepository
	cache      reportCache
	cacheTTL   time.Duration
	gate       authorizer
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(attendance attendanceStatsRepository, dashboard dashboardRepository, cache reportCache, cacheTTL time.Duration, gate authorizer, logger *zap.Logger) *ReportService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		dashboard:  dashboard,
		cache:      cache,
		cacheTTL:   cacheTTL,
		gate:       gate,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Stats returns register-wide attendance counts and the presence rate.
// Admin only. The rate is present/total*100 rounded to two decimals and 0
// by convention for an empty register.
func (s *ReportService) Stats(ctx context.Context, actor models.Actor) (*models.AttendanceStats, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadReports, authz.Target{}); err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached models.AttendanceStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.attendance.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance stats")
	}
	stats.Rate = presenceRate(stats.Present, stats.Total)

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance stats", zap.Error(err))
		}
	}
	return stats, nil
}

// InvalidateStats drops the cached stats after a mark. Best effort.
func (s *ReportService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

// Dashboard returns the admin overview counts. Admin only.
func (s *ReportService) Dashboard(ctx context.Context, actor models.Actor) (*models.DashboardCounts, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadReports, authz.Target{}); err != nil {
		return nil, err
	}

	students, err := s.dashboard.StudentCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	courses, err := s.dashboard.CourseCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	faculty, err := s.dashboard.FacultyCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count faculty")
	}
	enrollments, err := s.dashboard.EnrollmentCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	return &models.DashboardCounts{
		Students:    students,
		Courses:     courses,
		Faculty:     faculty,
		Enrollments: enrollments,
	}, nil
}

// ExportStats renders the attendance stats in the requested format.
func (s *ReportService) ExportStats(ctx context.Context, actor models.Actor, format string) ([]byte, string, error) {
	stats, err := s.Stats(ctx, actor)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Total", "Present", "Absent", "Late", "Rate"},
		Rows: []map[string]string{{
			"Total":   fmt.Sprintf("%d", stats.Total),
			"Present": fmt.Sprintf("%d", stats.Present),
			"Absent":  fmt.Sprintf("%d", stats.Absent),
			"Late":    fmt.Sprintf("%d", stats.Late),
			"Rate":    fmt.Sprintf("%.2f", stats.Rate),
		}},
	}
	return s.render(dataset, "attendance report", format)
}

// ExportSheet renders a course's sheet for one date. Admins and the
// course's faculty only.
func (s *ReportService) ExportSheet(ctx context.Context, actor models.Actor, courseID, dateRaw, format string) ([]byte, string, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadAttendance, authz.Target{CourseID: courseID}); err != nil {
		return nil, "", err
	}
	date, err := time.Parse(DateLayout, dateRaw)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	entries, err := s.attendance.SheetForDate(ctx, courseID, date)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance sheet")
	}

	dataset := export.Dataset{Headers: []string{"Student No", "Name", "Status"}}
	for _, entry := range entries {
		status := "unmarked"
		if entry.Status != nil {
			status = string(*entry.Status)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student No": entry.StudentNo,
			"Name":       entry.StudentName,
			"Status":     status,
		})
	}
	return s.render(dataset, "attendance sheet "+dateRaw, format)
}

func (s *ReportService) render(dataset export.Dataset, title, format string) ([]byte, string, error) {
	switch format {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// presenceRate computes present/total*100 rounded to two decimal places,
// returning 0 for an empty register.
func presenceRate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}
