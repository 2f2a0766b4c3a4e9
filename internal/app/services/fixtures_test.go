package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/services"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/token"
	"github.com/yigit/gradingdb/internal/testutil"
)

type fixture struct {
	db  *db.PostgresDB
	svc *services.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.SetupTestDB(t)
	return &fixture{
		db:  database,
		svc: services.NewServices(database, token.NewGenerator(token.DefaultMaxAttempts)),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) exam(t *testing.T, name string) *models.Exam {
	t.Helper()
	exam, err := f.svc.Exams.CreateExam(context.Background(), name)
	if err != nil {
		t.Fatalf("CreateExam(%q) failed: %v", name, err)
	}
	return exam
}

func (f *fixture) problem(t *testing.T, examID int64, name string) *models.Problem {
	t.Helper()
	problem := &models.Problem{ExamID: examID, Name: name}
	widget := models.NewProblemWidget(ptr(name), 10, 10, 0, 200, 100)
	if err := f.svc.Exams.CreateProblem(context.Background(), problem, widget); err != nil {
		t.Fatalf("CreateProblem(%q) failed: %v", name, err)
	}
	return problem
}

func (f *fixture) submission(t *testing.T, examID int64, copyNumber int) *models.Submission {
	t.Helper()
	submission := &models.Submission{ExamID: examID, CopyNumber: copyNumber}
	if err := f.svc.Submissions.CreateSubmission(context.Background(), submission); err != nil {
		t.Fatalf("CreateSubmission(copy %d) failed: %v", copyNumber, err)
	}
	return submission
}

func (f *fixture) option(t *testing.T, problemID int64, text string) *models.FeedbackOption {
	t.Helper()
	option := &models.FeedbackOption{ProblemID: problemID, Text: text}
	if err := f.svc.Exams.AddFeedbackOption(context.Background(), option); err != nil {
		t.Fatalf("AddFeedbackOption(%q) failed: %v", text, err)
	}
	return option
}

func (f *fixture) grader(t *testing.T, name string) *models.Grader {
	t.Helper()
	grader, err := f.svc.Roster.CreateGrader(context.Background(), name)
	if err != nil {
		t.Fatalf("CreateGrader(%q) failed: %v", name, err)
	}
	return grader
}

// count returns the number of rows of table matching where
func (f *fixture) count(t *testing.T, table, where string, args ...any) int {
	t.Helper()
	var n int
	query := "SELECT count(*) FROM " + table + " WHERE " + where
	if err := f.db.Pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected error matching %v, got %v", target, err)
	}
}
