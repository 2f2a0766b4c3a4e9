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

// GraderRepository handles grader database operations. Graders are insert only.
type GraderRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewGraderRepository creates a new GraderRepository
func NewGraderRepository(q db.Querier) *GraderRepository {
	return &GraderRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// Create inserts a grader and sets its ID
func (r *GraderRepository) Create(ctx context.Context, grader *models.Grader) error {
	sql, args, err := r.sb.Insert("graders").
		Columns("name").
		Values(grader.Name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create grader query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&grader.ID); err != nil {
		logger.Error().Err(err).Str("name", grader.Name).Msg("Error executing create grader query")
		return queryError("creating grader", err)
	}

	return nil
}

// GetByID retrieves a grader by ID
func (r *GraderRepository) GetByID(ctx context.Context, id int64) (*models.Grader, error) {
	sql, args, err := r.sb.Select("id", "name").
		From("graders").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get grader query: %w", err)
	}

	grader := &models.Grader{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&grader.ID, &grader.Name); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrGraderNotFound
		}
		logger.Error().Err(err).Int64("graderID", id).Msg("Error scanning grader row")
		return nil, queryError("getting grader", err)
	}

	return grader, nil
}

// List retrieves all graders
func (r *GraderRepository) List(ctx context.Context) ([]*models.Grader, error) {
	sql, args, err := r.sb.Select("id", "name").
		From("graders").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list graders query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying graders", err)
	}
	defer rows.Close()

	graders := []*models.Grader{}
	for rows.Next() {
		grader := &models.Grader{}
		if err := rows.Scan(&grader.ID, &grader.Name); err != nil {
			return nil, fmt.Errorf("error scanning grader row: %w", err)
		}
		graders = append(graders, grader)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grader rows: %w", err)
	}

	return graders, nil
}
