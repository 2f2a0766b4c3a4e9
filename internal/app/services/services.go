// Package services holds the grading operations. Each call is one unit of work: repositories are
// bound to a single transaction that commits when the call succeeds.
package services

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/repositories"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/token"
)

// Services defined in this package:
// - RosterService: students and graders
// - ExamService: exams, problems, feedback options, widgets and scans
// - SubmissionService: submissions and their pages
// - GradingService: solutions and their feedback
type Services struct {
	Roster      RosterService
	Exams       ExamService
	Submissions SubmissionService
	Grading     GradingService
}

// NewServices wires every service onto one database
func NewServices(database *db.PostgresDB, tokens *token.Generator) *Services {
	return &Services{
		Roster:      NewRosterService(database),
		Exams:       NewExamService(database, tokens),
		Submissions: NewSubmissionService(database),
		Grading:     NewGradingService(database),
	}
}

type repoFn func(ctx context.Context, repos *repositories.Repositories) error

// unitOfWork runs fn with repositories bound to one transaction
func unitOfWork(ctx context.Context, database *db.PostgresDB, fn repoFn) error {
	return database.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, repositories.NewRepositories(tx))
	})
}

// optionalText trims s and maps blank text to nil
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
