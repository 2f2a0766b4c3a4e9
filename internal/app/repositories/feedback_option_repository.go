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

// FeedbackOptionRepository handles feedback option database operations
type FeedbackOptionRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewFeedbackOptionRepository creates a new FeedbackOptionRepository
func NewFeedbackOptionRepository(q db.Querier) *FeedbackOptionRepository {
	return &FeedbackOptionRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// Create inserts a feedback option and sets its ID
func (r *FeedbackOptionRepository) Create(ctx context.Context, option *models.FeedbackOption) error {
	sql, args, err := r.sb.Insert("feedback_options").
		Columns("problem_id", "text", "description", "score").
		Values(option.ProblemID, option.Text, option.Description, option.Score).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create feedback option query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&option.ID); err != nil {
		logger.Error().Err(err).Int64("problemID", option.ProblemID).Msg("Error executing create feedback option query")
		return queryError("creating feedback option", err)
	}

	return nil
}

// GetByID retrieves a feedback option by ID
func (r *FeedbackOptionRepository) GetByID(ctx context.Context, id int64) (*models.FeedbackOption, error) {
	sql, args, err := r.sb.Select("id", "problem_id", "text", "description", "score").
		From("feedback_options").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get feedback option query: %w", err)
	}

	option := &models.FeedbackOption{}
	err = r.db.QueryRow(ctx, sql, args...).
		Scan(&option.ID, &option.ProblemID, &option.Text, &option.Description, &option.Score)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrFeedbackOptionNotFound
		}
		return nil, queryError("getting feedback option", err)
	}

	return option, nil
}

// ListByProblem retrieves the feedback options available for a problem
func (r *FeedbackOptionRepository) ListByProblem(ctx context.Context, problemID int64) ([]*models.FeedbackOption, error) {
	return r.list(ctx, r.sb.Select("id", "problem_id", "text", "description", "score").
		From("feedback_options").
		Where(squirrel.Eq{"problem_id": problemID}).
		OrderBy("id ASC"))
}

// ListBySolution retrieves the feedback options attached to a solution
func (r *FeedbackOptionRepository) ListBySolution(ctx context.Context, key models.SolutionKey) ([]*models.FeedbackOption, error) {
	return r.list(ctx, r.sb.Select("fo.id", "fo.problem_id", "fo.text", "fo.description", "fo.score").
		From("feedback_options fo").
		Join("solution_feedback sf ON sf.feedback_option_id = fo.id").
		Where(squirrel.Eq{"sf.submission_id": key.SubmissionID, "sf.problem_id": key.ProblemID}).
		OrderBy("fo.id ASC"))
}

func (r *FeedbackOptionRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.FeedbackOption, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list feedback options query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list feedback options query")
		return nil, queryError("querying feedback options", err)
	}
	defer rows.Close()

	options := []*models.FeedbackOption{}
	for rows.Next() {
		option := &models.FeedbackOption{}
		if err := rows.Scan(&option.ID, &option.ProblemID, &option.Text, &option.Description, &option.Score); err != nil {
			return nil, fmt.Errorf("error scanning feedback option row: %w", err)
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback option rows: %w", err)
	}

	return options, nil
}
