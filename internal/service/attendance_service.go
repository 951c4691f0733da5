package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	SheetForDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceSheetEntry, error)
	HistoryForStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error)
}

type statsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// MarkAttendanceRequest describes payload for marking one student on one
// course date.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// AttendanceService coordinates the attendance register.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentReader
	gate      authorizer
	stats     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students studentReader, gate authorizer, stats statsInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, students: students, gate: gate, stats: stats, validator: validate, logger: logger}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// Mark creates or amends the record for (student, course, date). Only the
// course's own faculty may mark; ownership is re-verified on every call.
// A repeat mark overwrites status and marker while the original creation
// timestamp is kept.
func (s *AttendanceService) Mark(ctx context.Context, actor models.Actor, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionMarkAttendance, authz.Target{CourseID: req.CourseID}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	record := &models.AttendanceRecord{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Date:      date,
		Status:    models.AttendanceStatus(strings.ToLower(req.Status)),
		MarkedBy:  actor.ID,
	}
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	if s.stats != nil {
		s.stats.InvalidateStats(ctx)
	}

	s.logger.Info("attendance marked",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.String("date", req.Date),
		zap.String("status", string(stored.Status)),
		zap.String("marked_by", actor.ID))
	return stored, nil
}

// SheetForDate returns the attendance sheet of a course for one date:
// every active enrollee, with a nil status for students not yet marked.
func (s *AttendanceService) SheetForDate(ctx context.Context, actor models.Actor, courseID, dateRaw string) ([]models.AttendanceSheetEntry, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadAttendance, authz.Target{CourseID: courseID}); err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, dateRaw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	entries, err := s.repo.SheetForDate(ctx, courseID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance sheet")
	}
	return entries, nil
}

// HistoryForStudent returns the student's marks for actively enrolled
// courses, most recent date first. Admins may read any student's history;
// students only their own.
func (s *AttendanceService) HistoryForStudent(ctx context.Context, actor models.Actor, studentID string) ([]models.AttendanceHistoryRow, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadAttendance, authz.Target{StudentID: studentID}); err != nil {
		return nil, err
	}
	rows, err := s.repo.HistoryForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return rows, nil
}
