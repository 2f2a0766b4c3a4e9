package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/services"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/token"
)

func TestCreateExamAssignsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "  Midterm  ")
	if exam.Name != "Midterm" {
		t.Errorf("Expected trimmed name, got %q", exam.Name)
	}
	if !token.Valid(exam.Token) {
		t.Fatalf("Expected 12 lowercase hex token, got %q", exam.Token)
	}
	if want := token.Candidate(token.Seed("Midterm", exam.ID), 0); exam.Token != want {
		t.Errorf("Expected first candidate %s, got %s", want, exam.Token)
	}

	byToken, err := f.svc.Exams.GetExamByToken(ctx, exam.Token)
	if err != nil {
		t.Fatalf("GetExamByToken failed: %v", err)
	}
	if byToken.ID != exam.ID || byToken.Finalized {
		t.Errorf("Unexpected exam %+v", byToken)
	}

	for _, tok := range []string{"not-a-token", "ffffffffffff"} {
		_, err := f.svc.Exams.GetExamByToken(ctx, tok)
		assertErrorIs(t, err, apperrors.ErrExamNotFound)
	}

	_, err = f.svc.Exams.CreateExam(ctx, "   ")
	assertErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestCreateExamRetriesOnTokenCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The sequence restarts at 1 after truncation, so the next exam reserves ID 1
	seed := token.Seed("Midterm2", 1)
	squatted := token.Candidate(seed, 0)
	if _, err := f.db.Pool.Exec(ctx, `INSERT INTO exams (id, name, token) VALUES (1000, 'Squatter', $1)`, squatted); err != nil {
		t.Fatalf("insert squatter: %v", err)
	}

	exam := f.exam(t, "Midterm2")
	if exam.ID != 1 {
		t.Fatalf("Expected exam ID 1, got %d", exam.ID)
	}
	if exam.Token == squatted {
		t.Fatal("Expected a token different from the taken one")
	}
	if want := token.Candidate(seed, 1); exam.Token != want {
		t.Errorf("Expected second candidate %s, got %s", want, exam.Token)
	}
}

func TestCreateExamExhaustsTokenSpace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	squatted := token.Candidate(token.Seed("Final", 1), 0)
	if _, err := f.db.Pool.Exec(ctx, `INSERT INTO exams (id, name, token) VALUES (1000, 'Squatter', $1)`, squatted); err != nil {
		t.Fatalf("insert squatter: %v", err)
	}

	exams := services.NewExamService(f.db, token.NewGenerator(1))
	_, err := exams.CreateExam(ctx, "Final")
	assertErrorIs(t, err, apperrors.ErrTokenSpaceExhausted)

	if n := f.count(t, "exams", "name = $1", "Final"); n != 0 {
		t.Errorf("Expected no exam row after exhaustion, found %d", n)
	}
}

func TestCreateExamConcurrentTokensAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens = make(map[string]int64, workers)
		errs   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Same name on purpose: only the reserved ID tells the seeds apart
			exam, err := f.svc.Exams.CreateExam(ctx, "Resit")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
				return
			}
			tokens[exam.Token] = exam.ID
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("Concurrent CreateExam failed: %v", errs)
	}
	if len(tokens) != workers {
		t.Fatalf("Expected %d distinct tokens, got %d", workers, len(tokens))
	}
	for tok := range tokens {
		if !token.Valid(tok) {
			t.Errorf("Invalid token %q", tok)
		}
	}
}

func TestExamTokenAndProblemAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Quiz")
	problem := f.problem(t, exam.ID, "Q1")
	other := f.exam(t, "Other quiz")

	updates := []struct {
		name  string
		query string
		args  []any
	}{
		{"exam token", `UPDATE exams SET token = $1 WHERE id = $2`, []any{"000000000000", exam.ID}},
		{"problem name", `UPDATE problems SET name = $1 WHERE id = $2`, []any{"Q1 renamed", problem.ID}},
		{"problem exam", `UPDATE problems SET exam_id = $1 WHERE id = $2`, []any{other.ID, problem.ID}},
	}
	for _, u := range updates {
		_, err := f.db.Pool.Exec(ctx, u.query, u.args...)
		if err == nil {
			t.Errorf("%s: expected update to be rejected", u.name)
			continue
		}
		assertErrorIs(t, dberrors.Classify(err), apperrors.ErrInvalidStateTransition)
	}

	// Flipping finalized stays allowed
	if err := f.svc.Exams.FinalizeExam(ctx, exam.ID); err != nil {
		t.Fatalf("FinalizeExam failed: %v", err)
	}
	got, err := f.svc.Exams.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	if !got.Finalized || got.Token != exam.Token {
		t.Errorf("Unexpected exam after finalize: %+v", got)
	}
}

func TestCreateProblemWithWidgetAndSolutions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	first := f.submission(t, exam.ID, 1)
	second := f.submission(t, exam.ID, 2)

	problem := f.problem(t, exam.ID, "Q1")
	if problem.Widget == nil || problem.Widget.Problem.ProblemID == nil || *problem.Widget.Problem.ProblemID != problem.ID {
		t.Fatalf("Expected problem widget linked to problem %d, got %+v", problem.ID, problem.Widget)
	}

	for _, sub := range []*models.Submission{first, second} {
		if n := f.count(t, "solutions", "submission_id = $1 AND problem_id = $2", sub.ID, problem.ID); n != 1 {
			t.Errorf("Expected one solution for submission %d, found %d", sub.ID, n)
		}
	}

	widget, err := f.svc.Exams.ProblemWidget(ctx, problem.ID)
	if err != nil {
		t.Fatalf("ProblemWidget failed: %v", err)
	}
	if widget.Kind != models.WidgetKindProblem || widget.Problem.Width != 200 || widget.Problem.Height != 100 {
		t.Errorf("Unexpected widget %+v", widget)
	}

	problems, err := f.svc.Exams.ListProblems(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListProblems failed: %v", err)
	}
	if len(problems) != 1 || problems[0].Widget == nil {
		t.Errorf("Expected one problem with widget, got %+v", problems)
	}

	linked := models.NewProblemWidget(nil, 0, 0, 0, 10, 10)
	linked.Problem.ProblemID = &problem.ID
	err = f.svc.Exams.CreateProblem(ctx, &models.Problem{ExamID: exam.ID, Name: "Q2"}, linked)
	assertErrorIs(t, err, apperrors.ErrUniquenessViolation)

	err = f.svc.Exams.CreateProblem(ctx, &models.Problem{ExamID: exam.ID, Name: "Q3"}, models.NewExamWidget(exam.ID, nil, 0, 0))
	assertErrorIs(t, err, apperrors.ErrValidationFailed)

	err = f.svc.Exams.CreateProblem(ctx, &models.Problem{ExamID: 9999, Name: "Q4"}, models.NewProblemWidget(nil, 0, 0, 0, 10, 10))
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)
}

func TestFinalizedExamLayoutIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	problem := f.problem(t, exam.ID, "Q1")
	if err := f.svc.Exams.FinalizeExam(ctx, exam.ID); err != nil {
		t.Fatalf("FinalizeExam failed: %v", err)
	}
	if err := f.svc.Exams.FinalizeExam(ctx, exam.ID); err != nil {
		t.Fatalf("Second FinalizeExam failed: %v", err)
	}

	err := f.svc.Exams.CreateProblem(ctx, &models.Problem{ExamID: exam.ID, Name: "Q2"}, models.NewProblemWidget(nil, 0, 0, 0, 10, 10))
	assertErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	err = f.svc.Exams.DeleteProblem(ctx, problem.ID)
	assertErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	err = f.svc.Exams.CreateExamWidget(ctx, models.NewExamWidget(exam.ID, ptr("barcode"), 0, 0))
	assertErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	// Feedback keeps growing while grading
	f.option(t, problem.ID, "Missing units")

	err = f.svc.Exams.FinalizeExam(ctx, 9999)
	assertErrorIs(t, err, apperrors.ErrExamNotFound)
}

func TestExamWidgets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	for _, name := range []string{"barcode", "student_id_widget"} {
		if err := f.svc.Exams.CreateExamWidget(ctx, models.NewExamWidget(exam.ID, ptr(name), 5, 7)); err != nil {
			t.Fatalf("CreateExamWidget(%s) failed: %v", name, err)
		}
	}
	f.problem(t, exam.ID, "Q1")

	widgets, err := f.svc.Exams.ListExamWidgets(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListExamWidgets failed: %v", err)
	}
	if len(widgets) != 2 {
		t.Fatalf("Expected only the two exam widgets, got %d", len(widgets))
	}
	for _, w := range widgets {
		if w.Kind != models.WidgetKindExam || w.Exam == nil || w.Exam.ExamID != exam.ID || w.Problem != nil {
			t.Errorf("Unexpected exam widget %+v", w)
		}
	}

	err = f.svc.Exams.CreateExamWidget(ctx, models.NewExamWidget(9999, nil, 0, 0))
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)

	_, err = f.svc.Exams.ListExamWidgets(ctx, 9999)
	assertErrorIs(t, err, apperrors.ErrExamNotFound)
}

func TestScanLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	scan, err := f.svc.Exams.CreateScan(ctx, exam.ID, "batch-01.pdf")
	if err != nil {
		t.Fatalf("CreateScan failed: %v", err)
	}
	if scan.Status != models.ScanStatusProcessing {
		t.Errorf("Expected processing status, got %s", scan.Status)
	}

	if err := f.svc.Exams.UpdateScanStatus(ctx, scan.ID, models.ScanStatusProcessing, ptr("page 3 of 20")); err != nil {
		t.Fatalf("Progress update failed: %v", err)
	}
	if err := f.svc.Exams.UpdateScanStatus(ctx, scan.ID, models.ScanStatusSuccess, nil); err != nil {
		t.Fatalf("Success update failed: %v", err)
	}

	err = f.svc.Exams.UpdateScanStatus(ctx, scan.ID, models.ScanStatusError, ptr("late failure"))
	assertErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	err = f.svc.Exams.UpdateScanStatus(ctx, scan.ID, "queued", nil)
	assertErrorIs(t, err, apperrors.ErrValidationFailed)

	err = f.svc.Exams.UpdateScanStatus(ctx, 9999, models.ScanStatusError, nil)
	assertErrorIs(t, err, apperrors.ErrScanNotFound)

	scans, err := f.svc.Exams.ListScans(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListScans failed: %v", err)
	}
	if len(scans) != 1 || scans[0].Status != models.ScanStatusSuccess || scans[0].Message != nil {
		t.Errorf("Unexpected scans %+v", scans)
	}

	_, err = f.svc.Exams.CreateScan(ctx, 9999, "orphan.pdf")
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)
}

func TestDeleteExamCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doomed := f.exam(t, "Doomed")
	problem := f.problem(t, doomed.ID, "Q1")
	submission := f.submission(t, doomed.ID, 1)
	option := f.option(t, problem.ID, "Correct")
	if _, err := f.svc.Exams.CreateScan(ctx, doomed.ID, "doomed.pdf"); err != nil {
		t.Fatalf("CreateScan failed: %v", err)
	}
	if err := f.svc.Exams.CreateExamWidget(ctx, models.NewExamWidget(doomed.ID, ptr("barcode"), 0, 0)); err != nil {
		t.Fatalf("CreateExamWidget failed: %v", err)
	}
	if err := f.svc.Submissions.AddPage(ctx, &models.Page{SubmissionID: submission.ID, Path: "doomed/1/0.jpg"}); err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	key := models.SolutionKey{SubmissionID: submission.ID, ProblemID: problem.ID}
	if err := f.svc.Grading.AddFeedback(ctx, key, option.ID); err != nil {
		t.Fatalf("AddFeedback failed: %v", err)
	}

	survivor := f.exam(t, "Survivor")
	keptProblem := f.problem(t, survivor.ID, "Q1")
	keptSubmission := f.submission(t, survivor.ID, 1)
	keptOption := f.option(t, keptProblem.ID, "Correct")
	keptKey := models.SolutionKey{SubmissionID: keptSubmission.ID, ProblemID: keptProblem.ID}
	if err := f.svc.Grading.AddFeedback(ctx, keptKey, keptOption.ID); err != nil {
		t.Fatalf("AddFeedback failed: %v", err)
	}

	if err := f.svc.Exams.DeleteExam(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteExam failed: %v", err)
	}

	gone := []struct {
		table string
		where string
		arg   int64
	}{
		{"exams", "id = $1", doomed.ID},
		{"submissions", "exam_id = $1", doomed.ID},
		{"problems", "exam_id = $1", doomed.ID},
		{"scans", "exam_id = $1", doomed.ID},
		{"widgets", "exam_id = $1", doomed.ID},
		{"widgets", "problem_id = $1", problem.ID},
		{"pages", "submission_id = $1", submission.ID},
		{"feedback_options", "problem_id = $1", problem.ID},
		{"solutions", "submission_id = $1", submission.ID},
		{"solution_feedback", "submission_id = $1", submission.ID},
	}
	for _, g := range gone {
		if n := f.count(t, g.table, g.where, g.arg); n != 0 {
			t.Errorf("Expected %s rows with %s to be deleted, found %d", g.table, g.where, n)
		}
	}

	solution, err := f.svc.Grading.GetSolution(ctx, keptKey)
	if err != nil {
		t.Fatalf("GetSolution of unrelated exam failed: %v", err)
	}
	if len(solution.Feedback) != 1 || solution.Feedback[0].ID != keptOption.ID {
		t.Errorf("Expected unrelated feedback to survive, got %+v", solution.Feedback)
	}

	err = f.svc.Exams.DeleteExam(ctx, doomed.ID)
	assertErrorIs(t, err, apperrors.ErrExamNotFound)
}

func TestDeleteProblemCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	problem := f.problem(t, exam.ID, "Q1")
	kept := f.problem(t, exam.ID, "Q2")
	f.submission(t, exam.ID, 1)
	f.option(t, problem.ID, "Wrong sign")

	if err := f.svc.Exams.DeleteProblem(ctx, problem.ID); err != nil {
		t.Fatalf("DeleteProblem failed: %v", err)
	}

	if n := f.count(t, "widgets", "problem_id = $1", problem.ID); n != 0 {
		t.Errorf("Expected problem widget to be deleted, found %d", n)
	}
	if n := f.count(t, "feedback_options", "problem_id = $1", problem.ID); n != 0 {
		t.Errorf("Expected feedback options to be deleted, found %d", n)
	}
	if n := f.count(t, "solutions", "problem_id = $1", kept.ID); n != 1 {
		t.Errorf("Expected the other problem's solution to remain, found %d", n)
	}

	_, err := f.svc.Exams.GetProblem(ctx, problem.ID)
	assertErrorIs(t, err, apperrors.ErrProblemNotFound)
}
