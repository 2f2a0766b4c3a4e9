package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// ProblemRepository handles problem database operations. There is no update: problems are
// fixed once the exam is set up.
type ProblemRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewProblemRepository creates a new ProblemRepository
func NewProblemRepository(q db.Querier) *ProblemRepository {
	return &ProblemRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// Create inserts a problem and sets its ID
func (r *ProblemRepository) Create(ctx context.Context, problem *models.Problem) error {
	sql, args, err := r.sb.Insert("problems").
		Columns("exam_id", "name").
		Values(problem.ExamID, problem.Name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create problem query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&problem.ID); err != nil {
		logger.Error().Err(err).Int64("examID", problem.ExamID).Msg("Error executing create problem query")
		return queryError("creating problem", err)
	}

	return nil
}

// GetByID retrieves a problem by ID, without its widget
func (r *ProblemRepository) GetByID(ctx context.Context, id int64) (*models.Problem, error) {
	sql, args, err := r.sb.Select("id", "exam_id", "name").
		From("problems").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get problem query: %w", err)
	}

	problem := &models.Problem{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&problem.ID, &problem.ExamID, &problem.Name); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrProblemNotFound
		}
		logger.Error().Err(err).Int64("problemID", id).Msg("Error scanning problem row")
		return nil, queryError("getting problem", err)
	}

	return problem, nil
}

// ListByExam retrieves the problems of an exam in creation order
func (r *ProblemRepository) ListByExam(ctx context.Context, examID int64) ([]*models.Problem, error) {
	sql, args, err := r.sb.Select("id", "exam_id", "name").
		From("problems").
		Where(squirrel.Eq{"exam_id": examID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list problems query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying problems", err)
	}
	defer rows.Close()

	problems := []*models.Problem{}
	for rows.Next() {
		problem := &models.Problem{}
		if err := rows.Scan(&problem.ID, &problem.ExamID, &problem.Name); err != nil {
			return nil, fmt.Errorf("error scanning problem row: %w", err)
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating problem rows: %w", err)
	}

	return problems, nil
}

// Delete removes a problem together with its widget, feedback options and solutions
func (r *ProblemRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("problems").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete problem query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("problemID", id).Msg("Error executing delete problem query")
		return queryError("deleting problem", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrProblemNotFound
	}

	return nil
}
