package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-attendance-api/internal/models"
)

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns student profiles matching the filter.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, int, error) {
	base := "FROM students"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(student_no ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, account_id, student_no, first_name, last_name, email, phone, department, year, semester, enrollment_date
        %s ORDER BY student_no ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var students []models.StudentProfile
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student profile by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	const query = `SELECT id, account_id, student_no, first_name, last_name, email, phone, department, year, semester, enrollment_date
        FROM students WHERE id = $1`
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByAccountID returns the profile owned by an account.
func (r *StudentRepository) FindByAccountID(ctx context.Context, accountID string) (*models.StudentProfile, error) {
	const query = `SELECT id, account_id, student_no, first_name, last_name, email, phone, department, year, semester, enrollment_date
        FROM students WHERE account_id = $1`
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, query, accountID); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateWithAccount persists the account and its student profile inside a
// single transaction so the pair is created both-or-neither.
func (r *StudentRepository) CreateWithAccount(ctx context.Context, account *models.Account, student *models.StudentProfile) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.AccountID = account.ID
	if student.EnrollmentDate.IsZero() {
		student.EnrollmentDate = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const accountQuery = `INSERT INTO accounts (id, username, email, password_hash, role, created_at)
        VALUES (:id, :username, :email, :password_hash, :role, :created_at)`
	if _, err := tx.NamedExecContext(ctx, accountQuery, account); err != nil {
		return fmt.Errorf("create student account: %w", err)
	}

	const studentQuery = `INSERT INTO students (id, account_id, student_no, first_name, last_name, email, phone, department, year, semester, enrollment_date)
        VALUES (:id, :account_id, :student_no, :first_name, :last_name, :email, :phone, :department, :year, :semester, :enrollment_date)`
	if _, err := tx.NamedExecContext(ctx, studentQuery, student); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	commit = true
	return nil
}
