package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

var studentColumns = []string{"id", "first_name", "last_name", "email"}

// StudentRepository handles student database operations
type StudentRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(q db.Querier) *StudentRepository {
	return &StudentRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// Create inserts a student under its institutional ID
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	sql, args, err := r.sb.Insert("students").
		Columns(studentColumns...).
		Values(student.ID, student.FirstName, student.LastName, student.Email).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "students_pkey"):
			return apperrors.ErrStudentAlreadyExists.WithDetails(map[string]interface{}{"id": student.ID})
		case dberrors.IsDuplicateConstraintError(err, "students_email_key"):
			return apperrors.ErrEmailAlreadyExists.WithDetails(map[string]interface{}{"email": *student.Email})
		}
		logger.Error().Err(err).Int64("studentID", student.ID).Msg("Error executing create student query")
		return queryError("creating student", err)
	}

	return nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a student by email
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student := &models.Student{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&student.ID, &student.FirstName, &student.LastName, &student.Email)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Msg("Error scanning student row")
		return nil, queryError("getting student", err)
	}

	return student, nil
}

// List retrieves all students ordered by name
func (r *StudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, queryError("querying students", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		student := &models.Student{}
		if err := rows.Scan(&student.ID, &student.FirstName, &student.LastName, &student.Email); err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	return students, nil
}

// Exists checks whether a student with the given ID is stored
func (r *StudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	found, err := exists(ctx, r.db, r.sb.Select("1").From("students").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, queryError("checking student existence", err)
	}
	return found, nil
}
