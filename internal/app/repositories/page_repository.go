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

// PageRepository handles page database operations
type PageRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewPageRepository creates a new PageRepository
func NewPageRepository(q db.Querier) *PageRepository {
	return &PageRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// Create inserts a page and sets its ID
func (r *PageRepository) Create(ctx context.Context, page *models.Page) error {
	sql, args, err := r.sb.Insert("pages").
		Columns("submission_id", "path", "number").
		Values(page.SubmissionID, page.Path, page.Number).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create page query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&page.ID); err != nil {
		logger.Error().Err(err).Int64("submissionID", page.SubmissionID).Msg("Error executing create page query")
		return queryError("creating page", err)
	}

	return nil
}

// GetByID retrieves a page by ID
func (r *PageRepository) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	sql, args, err := r.sb.Select("id", "submission_id", "path", "number").
		From("pages").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get page query: %w", err)
	}

	page := &models.Page{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&page.ID, &page.SubmissionID, &page.Path, &page.Number); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrPageNotFound
		}
		return nil, queryError("getting page", err)
	}

	return page, nil
}

// ListBySubmission retrieves the pages of a submission in page order
func (r *PageRepository) ListBySubmission(ctx context.Context, submissionID int64) ([]*models.Page, error) {
	sql, args, err := r.sb.Select("id", "submission_id", "path", "number").
		From("pages").
		Where(squirrel.Eq{"submission_id": submissionID}).
		OrderBy("number ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list pages query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying pages", err)
	}
	defer rows.Close()

	pages := []*models.Page{}
	for rows.Next() {
		page := &models.Page{}
		if err := rows.Scan(&page.ID, &page.SubmissionID, &page.Path, &page.Number); err != nil {
			return nil, fmt.Errorf("error scanning page row: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows: %w", err)
	}

	return pages, nil
}
