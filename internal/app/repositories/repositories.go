package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
)

// Repositories holds all the repository instances bound to one Querier, usually the
// transaction of a unit of work
type Repositories struct {
	Students        *StudentRepository
	Graders         *GraderRepository
	Exams           *ExamRepository
	Submissions     *SubmissionRepository
	Pages           *PageRepository
	Problems        *ProblemRepository
	Widgets         *WidgetRepository
	FeedbackOptions *FeedbackOptionRepository
	Solutions       *SolutionRepository
	Scans           *ScanRepository
}

// NewRepositories initializes all repositories on q
func NewRepositories(q db.Querier) *Repositories {
	return &Repositories{
		Students:        NewStudentRepository(q),
		Graders:         NewGraderRepository(q),
		Exams:           NewExamRepository(q),
		Submissions:     NewSubmissionRepository(q),
		Pages:           NewPageRepository(q),
		Problems:        NewProblemRepository(q),
		Widgets:         NewWidgetRepository(q),
		FeedbackOptions: NewFeedbackOptionRepository(q),
		Solutions:       NewSolutionRepository(q),
		Scans:           NewScanRepository(q),
	}
}

// newStatementBuilder returns a squirrel builder using PostgreSQL placeholders
func newStatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// isNoRows reports whether err means the queried row does not exist
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// queryError wraps a failed statement, mapping PostgreSQL errors onto the apperrors taxonomy
func queryError(op string, err error) error {
	return fmt.Errorf("error %s: %w", op, dberrors.Classify(err))
}

// exists wraps query in SELECT EXISTS and runs it
func exists(ctx context.Context, q db.Querier, query squirrel.SelectBuilder) (bool, error) {
	sql, args, err := query.Prefix("SELECT EXISTS (").Suffix(")").Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var found bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
