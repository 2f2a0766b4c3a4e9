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

var examColumns = []string{"id", "name", "token", "finalized"}

// ExamRepository handles exam database operations
type ExamRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewExamRepository creates a new ExamRepository
func NewExamRepository(q db.Querier) *ExamRepository {
	return &ExamRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// NextID reserves an exam ID from the exams sequence. The token is derived from it before the
// row exists.
func (r *ExamRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('exams', 'id'))`).Scan(&id)
	if err != nil {
		logger.Error().Err(err).Msg("Error reserving exam ID")
		return 0, queryError("reserving exam ID", err)
	}
	return id, nil
}

// TokenExists checks whether an exam already holds token
func (r *ExamRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	found, err := exists(ctx, r.db, r.sb.Select("1").From("exams").Where(squirrel.Eq{"token": token}))
	if err != nil {
		return false, queryError("checking exam token", err)
	}
	return found, nil
}

// Create inserts an exam with the ID and token already set on it
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	sql, args, err := r.sb.Insert("exams").
		Columns(examColumns...).
		Values(exam.ID, exam.Name, exam.Token, exam.Finalized).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create exam query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "exams_token_key") {
			return apperrors.ErrExamTokenTaken.WithDetails(map[string]interface{}{"token": exam.Token})
		}
		logger.Error().Err(err).Int64("examID", exam.ID).Msg("Error executing create exam query")
		return queryError("creating exam", err)
	}

	return nil
}

// GetByID retrieves an exam by ID
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*models.Exam, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByToken retrieves an exam by its token
func (r *ExamRepository) GetByToken(ctx context.Context, token string) (*models.Exam, error) {
	return r.getOne(ctx, squirrel.Eq{"token": token})
}

func (r *ExamRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Exam, error) {
	sql, args, err := r.sb.Select(examColumns...).
		From("exams").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get exam query: %w", err)
	}

	exam := &models.Exam{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exam.ID, &exam.Name, &exam.Token, &exam.Finalized); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrExamNotFound
		}
		logger.Error().Err(err).Msg("Error scanning exam row")
		return nil, queryError("getting exam", err)
	}

	return exam, nil
}

// List retrieves all exams in creation order
func (r *ExamRepository) List(ctx context.Context) ([]*models.Exam, error) {
	sql, args, err := r.sb.Select(examColumns...).
		From("exams").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list exams query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying exams", err)
	}
	defer rows.Close()

	exams := []*models.Exam{}
	for rows.Next() {
		exam := &models.Exam{}
		if err := rows.Scan(&exam.ID, &exam.Name, &exam.Token, &exam.Finalized); err != nil {
			return nil, fmt.Errorf("error scanning exam row: %w", err)
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exam rows: %w", err)
	}

	return exams, nil
}

// SetFinalized updates the finalized flag of an exam
func (r *ExamRepository) SetFinalized(ctx context.Context, id int64, finalized bool) error {
	sql, args, err := r.sb.Update("exams").
		Set("finalized", finalized).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build finalize exam query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("examID", id).Msg("Error executing finalize exam query")
		return queryError("finalizing exam", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrExamNotFound
	}

	return nil
}

// Delete removes an exam. Submissions, problems, scans and exam widgets go with it.
func (r *ExamRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("exams").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete exam query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("examID", id).Msg("Error executing delete exam query")
		return queryError("deleting exam", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrExamNotFound
	}

	return nil
}
