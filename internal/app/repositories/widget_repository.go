package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

var widgetColumns = []string{"id", "kind", "name", "x", "y", "exam_id", "problem_id", "page", "width", "height"}

// WidgetRepository handles widget database operations. Both variants live in the widgets table,
// the kind column selects which payload columns are set.
type WidgetRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewWidgetRepository creates a new WidgetRepository
func NewWidgetRepository(q db.Querier) *WidgetRepository {
	return &WidgetRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

// variantValues flattens the payload of w into its nullable columns
func variantValues(w *models.Widget) (examID, problemID *int64, page, width, height *int) {
	if w.Exam != nil {
		examID = &w.Exam.ExamID
	}
	if w.Problem != nil {
		problemID = w.Problem.ProblemID
		page, width, height = &w.Problem.Page, &w.Problem.Width, &w.Problem.Height
	}
	return examID, problemID, page, width, height
}

func scanWidget(row pgx.Row) (*models.Widget, error) {
	var (
		w                   models.Widget
		kind                string
		examID, problemID   *int64
		page, width, height *int
	)
	if err := row.Scan(&w.ID, &kind, &w.Name, &w.X, &w.Y, &examID, &problemID, &page, &width, &height); err != nil {
		return nil, err
	}
	w.Kind = models.WidgetKind(kind)

	switch w.Kind {
	case models.WidgetKindExam:
		if examID == nil {
			return nil, fmt.Errorf("exam widget %d has no exam", w.ID)
		}
		w.Exam = &models.ExamWidget{ExamID: *examID}
	case models.WidgetKindProblem:
		if page == nil || width == nil || height == nil {
			return nil, fmt.Errorf("problem widget %d has no geometry", w.ID)
		}
		w.Problem = &models.ProblemWidget{ProblemID: problemID, Page: *page, Width: *width, Height: *height}
	default:
		return nil, fmt.Errorf("widget %d has unknown kind %q", w.ID, w.Kind)
	}

	return &w, nil
}

// Create inserts a widget of either kind and sets its ID
func (r *WidgetRepository) Create(ctx context.Context, widget *models.Widget) error {
	examID, problemID, page, width, height := variantValues(widget)
	sql, args, err := r.sb.Insert("widgets").
		Columns(widgetColumns[1:]...).
		Values(string(widget.Kind), widget.Name, widget.X, widget.Y, examID, problemID, page, width, height).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create widget query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&widget.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "widgets_problem_id_key") {
			return apperrors.ErrWidgetAlreadyLinked.WithDetails(map[string]interface{}{"problemId": *problemID})
		}
		logger.Error().Err(err).Str("kind", string(widget.Kind)).Msg("Error executing create widget query")
		return queryError("creating widget", err)
	}

	return nil
}

// GetByID retrieves a widget of either kind by ID
func (r *WidgetRepository) GetByID(ctx context.Context, id int64) (*models.Widget, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByProblem retrieves the widget linked to a problem
func (r *WidgetRepository) GetByProblem(ctx context.Context, problemID int64) (*models.Widget, error) {
	return r.getOne(ctx, squirrel.Eq{"kind": string(models.WidgetKindProblem), "problem_id": problemID})
}

func (r *WidgetRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Widget, error) {
	sql, args, err := r.sb.Select(widgetColumns...).
		From("widgets").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get widget query: %w", err)
	}

	widget, err := scanWidget(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrWidgetNotFound
		}
		logger.Error().Err(err).Msg("Error scanning widget row")
		return nil, queryError("getting widget", err)
	}

	return widget, nil
}

// ListByExam retrieves the exam widgets of an exam
func (r *WidgetRepository) ListByExam(ctx context.Context, examID int64) ([]*models.Widget, error) {
	sql, args, err := r.sb.Select(widgetColumns...).
		From("widgets").
		Where(squirrel.Eq{"kind": string(models.WidgetKindExam), "exam_id": examID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list widgets query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying widgets", err)
	}
	defer rows.Close()

	widgets := []*models.Widget{}
	for rows.Next() {
		widget, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning widget row: %w", err)
		}
		widgets = append(widgets, widget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating widget rows: %w", err)
	}

	return widgets, nil
}

// LinkProblem attaches an unlinked problem widget to a problem
func (r *WidgetRepository) LinkProblem(ctx context.Context, widgetID, problemID int64) error {
	sql, args, err := r.sb.Update("widgets").
		Set("problem_id", problemID).
		Where(squirrel.Eq{"id": widgetID, "kind": string(models.WidgetKindProblem), "problem_id": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build link widget query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "widgets_problem_id_key") {
			return apperrors.ErrWidgetAlreadyLinked.WithDetails(map[string]interface{}{"problemId": problemID})
		}
		logger.Error().Err(err).Int64("widgetID", widgetID).Int64("problemID", problemID).Msg("Error linking widget")
		return queryError("linking widget", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrWidgetNotFound
	}

	return nil
}
