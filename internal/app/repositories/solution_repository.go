package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

var solutionColumns = []string{"s.submission_id", "s.problem_id", "s.graded_by", "s.graded_at", "s.remarks"}

// SolutionRepository handles solution database operations, including the solution_feedback
// links between solutions and shared feedback options
type SolutionRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewSolutionRepository creates a new SolutionRepository
func NewSolutionRepository(q db.Querier) *SolutionRepository {
	return &SolutionRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

func scanSolution(row pgx.Row, s *models.Solution) error {
	return row.Scan(&s.SubmissionID, &s.ProblemID, &s.GradedBy, &s.GradedAt, &s.Remarks)
}

func keyWhere(key models.SolutionKey) squirrel.Eq {
	return squirrel.Eq{"submission_id": key.SubmissionID, "problem_id": key.ProblemID}
}

func keyFields(key models.SolutionKey) map[string]interface{} {
	return map[string]interface{}{"submissionId": key.SubmissionID, "problemId": key.ProblemID}
}

// Create inserts a single solution
func (r *SolutionRepository) Create(ctx context.Context, solution *models.Solution) error {
	sql, args, err := r.sb.Insert("solutions").
		Columns("submission_id", "problem_id", "graded_by", "graded_at", "remarks").
		Values(solution.SubmissionID, solution.ProblemID, solution.GradedBy, solution.GradedAt, solution.Remarks).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create solution query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "solutions_pkey") {
			return apperrors.ErrSolutionAlreadyExists.WithDetails(keyFields(solution.Key()))
		}
		logger.Error().Err(err).Int64("submissionID", solution.SubmissionID).Int64("problemID", solution.ProblemID).
			Msg("Error executing create solution query")
		return queryError("creating solution", err)
	}

	return nil
}

// CreateForSubmission inserts an empty solution for every problem of the exam the submission
// belongs to, and returns how many were created
func (r *SolutionRepository) CreateForSubmission(ctx context.Context, submissionID, examID int64) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		INSERT INTO solutions (submission_id, problem_id)
		SELECT $1, p.id FROM problems p WHERE p.exam_id = $2
	`, submissionID, examID)
	if err != nil {
		logger.Error().Err(err).Int64("submissionID", submissionID).Msg("Error creating submission solutions")
		return 0, queryError("creating submission solutions", err)
	}
	return cmdTag.RowsAffected(), nil
}

// CreateForProblem inserts an empty solution of a new problem for every existing submission of
// its exam, and returns how many were created
func (r *SolutionRepository) CreateForProblem(ctx context.Context, problemID, examID int64) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		INSERT INTO solutions (submission_id, problem_id)
		SELECT s.id, $1 FROM submissions s WHERE s.exam_id = $2
	`, problemID, examID)
	if err != nil {
		logger.Error().Err(err).Int64("problemID", problemID).Msg("Error creating problem solutions")
		return 0, queryError("creating problem solutions", err)
	}
	return cmdTag.RowsAffected(), nil
}

// Get retrieves a solution by its (submission, problem) key. Pass forUpdate to lock the row
// for the rest of the transaction.
func (r *SolutionRepository) Get(ctx context.Context, key models.SolutionKey, forUpdate bool) (*models.Solution, error) {
	query := r.sb.Select(solutionColumns...).
		From("solutions s").
		Where(squirrel.Eq{"s.submission_id": key.SubmissionID, "s.problem_id": key.ProblemID})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get solution query: %w", err)
	}

	solution := &models.Solution{}
	if err := scanSolution(r.db.QueryRow(ctx, sql, args...), solution); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrSolutionNotFound.WithDetails(keyFields(key))
		}
		logger.Error().Err(err).Int64("submissionID", key.SubmissionID).Int64("problemID", key.ProblemID).
			Msg("Error scanning solution row")
		return nil, queryError("getting solution", err)
	}

	return solution, nil
}

// ListBySubmission retrieves the solutions of a submission in problem order
func (r *SolutionRepository) ListBySubmission(ctx context.Context, submissionID int64) ([]*models.Solution, error) {
	return r.list(ctx, r.sb.Select(solutionColumns...).
		From("solutions s").
		Where(squirrel.Eq{"s.submission_id": submissionID}).
		OrderBy("s.problem_id ASC"))
}

// ListByProblem retrieves the solutions of a problem across all submissions
func (r *SolutionRepository) ListByProblem(ctx context.Context, problemID int64) ([]*models.Solution, error) {
	return r.list(ctx, r.sb.Select(solutionColumns...).
		From("solutions s").
		Where(squirrel.Eq{"s.problem_id": problemID}).
		OrderBy("s.submission_id ASC"))
}

// ListByGrader retrieves the solutions graded by a grader, most recent first
func (r *SolutionRepository) ListByGrader(ctx context.Context, graderID int64) ([]*models.Solution, error) {
	return r.list(ctx, r.sb.Select(solutionColumns...).
		From("solutions s").
		Where(squirrel.Eq{"s.graded_by": graderID}).
		OrderBy("s.graded_at DESC", "s.submission_id ASC", "s.problem_id ASC"))
}

// ListByFeedbackOption retrieves every solution the option is attached to
func (r *SolutionRepository) ListByFeedbackOption(ctx context.Context, optionID int64) ([]*models.Solution, error) {
	return r.list(ctx, r.sb.Select(solutionColumns...).
		From("solutions s").
		Join("solution_feedback sf ON sf.submission_id = s.submission_id AND sf.problem_id = s.problem_id").
		Where(squirrel.Eq{"sf.feedback_option_id": optionID}).
		OrderBy("s.submission_id ASC"))
}

func (r *SolutionRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Solution, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list solutions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list solutions query")
		return nil, queryError("querying solutions", err)
	}
	defer rows.Close()

	solutions := []*models.Solution{}
	for rows.Next() {
		solution := &models.Solution{}
		if err := scanSolution(rows, solution); err != nil {
			return nil, fmt.Errorf("error scanning solution row: %w", err)
		}
		solutions = append(solutions, solution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solution rows: %w", err)
	}

	return solutions, nil
}

// SetGrade writes graded_by and graded_at in one statement. Both nil clears the grade.
func (r *SolutionRepository) SetGrade(ctx context.Context, key models.SolutionKey, graderID *int64, gradedAt *time.Time) error {
	return r.update(ctx, key, "grading solution", map[string]interface{}{
		"graded_by": graderID,
		"graded_at": gradedAt,
	})
}

// SetRemarks sets or clears the free text remarks of a solution
func (r *SolutionRepository) SetRemarks(ctx context.Context, key models.SolutionKey, remarks *string) error {
	return r.update(ctx, key, "setting solution remarks", map[string]interface{}{
		"remarks": remarks,
	})
}

func (r *SolutionRepository) update(ctx context.Context, key models.SolutionKey, op string, values map[string]interface{}) error {
	sql, args, err := r.sb.Update("solutions").
		SetMap(values).
		Where(keyWhere(key)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update solution query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("submissionID", key.SubmissionID).Int64("problemID", key.ProblemID).
			Msgf("Error %s", op)
		return queryError(op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSolutionNotFound.WithDetails(keyFields(key))
	}

	return nil
}

// AddFeedback links a feedback option to a solution. Linking an option twice is a no-op.
// The option must belong to the solution's problem.
func (r *SolutionRepository) AddFeedback(ctx context.Context, key models.SolutionKey, optionID int64) error {
	sql, args, err := r.sb.Insert("solution_feedback").
		Columns("submission_id", "problem_id", "feedback_option_id").
		Values(key.SubmissionID, key.ProblemID, optionID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build add feedback query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		switch {
		case dberrors.IsForeignKeyViolation(err, "solution_feedback_solution_fkey"):
			return apperrors.ErrSolutionNotFound.WithDetails(keyFields(key))
		case dberrors.IsForeignKeyViolation(err, "solution_feedback_option_fkey"):
			return fmt.Errorf("%w: %w", apperrors.NewReferentialIntegrityError(
				fmt.Sprintf("feedback option %d does not belong to problem %d", optionID, key.ProblemID)), err)
		}
		logger.Error().Err(err).Int64("optionID", optionID).Msg("Error adding solution feedback")
		return queryError("adding solution feedback", err)
	}

	return nil
}

// RemoveFeedback unlinks a feedback option from a solution. The option itself and its links to
// other solutions are untouched. It reports whether a link was removed.
func (r *SolutionRepository) RemoveFeedback(ctx context.Context, key models.SolutionKey, optionID int64) (bool, error) {
	sql, args, err := r.sb.Delete("solution_feedback").
		Where(squirrel.Eq{
			"submission_id":      key.SubmissionID,
			"problem_id":         key.ProblemID,
			"feedback_option_id": optionID,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build remove feedback query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("optionID", optionID).Msg("Error removing solution feedback")
		return false, queryError("removing solution feedback", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}
