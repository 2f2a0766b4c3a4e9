package services_test

import (
	"context"
	"testing"

	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
)

func TestCreateSubmissionCreatesSolutionPerProblem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	problems := []*models.Problem{f.problem(t, exam.ID, "Q1"), f.problem(t, exam.ID, "Q2"), f.problem(t, exam.ID, "Q3")}
	submission := f.submission(t, exam.ID, 1)

	solutions, err := f.svc.Grading.ListSolutions(ctx, submission.ID)
	if err != nil {
		t.Fatalf("ListSolutions failed: %v", err)
	}
	if len(solutions) != len(problems) {
		t.Fatalf("Expected %d solutions, got %d", len(problems), len(solutions))
	}
	for i, s := range solutions {
		if s.ProblemID != problems[i].ID || s.Graded() || s.Remarks != nil || len(s.Feedback) != 0 {
			t.Errorf("Unexpected fresh solution %+v", s)
		}
	}

	err = f.svc.Submissions.CreateSubmission(ctx, &models.Submission{ExamID: exam.ID, CopyNumber: 1})
	assertErrorIs(t, err, apperrors.ErrCopyNumberTaken)

	// Copy numbers are only unique within one exam
	other := f.exam(t, "Other")
	f.submission(t, other.ID, 1)

	err = f.svc.Submissions.CreateSubmission(ctx, &models.Submission{ExamID: 9999, CopyNumber: 1})
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)

	err = f.svc.Submissions.CreateSubmission(ctx, &models.Submission{ExamID: exam.ID, CopyNumber: 0})
	assertErrorIs(t, err, apperrors.ErrValidationFailed)

	listed, err := f.svc.Submissions.ListSubmissions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected one submission, got %d", len(listed))
	}
}

func TestAssignStudentAndValidateSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	submission := f.submission(t, exam.ID, 1)

	err := f.svc.Submissions.ValidateSignature(ctx, submission.ID, true)
	assertErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	err = f.svc.Submissions.AssignStudent(ctx, submission.ID, ptr(int64(4999999)))
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)

	student := &models.Student{ID: 4200001, FirstName: "Alan", LastName: "Turing"}
	if err := f.svc.Roster.CreateStudent(ctx, student); err != nil {
		t.Fatalf("CreateStudent failed: %v", err)
	}
	if err := f.svc.Submissions.AssignStudent(ctx, submission.ID, &student.ID); err != nil {
		t.Fatalf("AssignStudent failed: %v", err)
	}
	if err := f.svc.Submissions.ValidateSignature(ctx, submission.ID, true); err != nil {
		t.Fatalf("ValidateSignature failed: %v", err)
	}

	got, err := f.svc.Submissions.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if got.StudentID == nil || *got.StudentID != student.ID || !got.SignatureValidated {
		t.Errorf("Unexpected submission %+v", got)
	}

	if err := f.svc.Submissions.AssignStudent(ctx, submission.ID, nil); err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}
	got, err = f.svc.Submissions.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if got.StudentID != nil {
		t.Errorf("Expected submission to be unassigned, got student %d", *got.StudentID)
	}
	if got.SignatureValidated {
		t.Error("Expected unassigning to clear the signature validation")
	}

	// Reassigning to another student also clears it, the same student keeps it
	other := &models.Student{ID: 4200002, FirstName: "Grace", LastName: "Hopper"}
	if err := f.svc.Roster.CreateStudent(ctx, other); err != nil {
		t.Fatalf("CreateStudent failed: %v", err)
	}
	if err := f.svc.Submissions.AssignStudent(ctx, submission.ID, &student.ID); err != nil {
		t.Fatalf("AssignStudent failed: %v", err)
	}
	if err := f.svc.Submissions.ValidateSignature(ctx, submission.ID, true); err != nil {
		t.Fatalf("ValidateSignature failed: %v", err)
	}
	if err := f.svc.Submissions.AssignStudent(ctx, submission.ID, ptr(student.ID)); err != nil {
		t.Fatalf("Repeated AssignStudent failed: %v", err)
	}
	got, err = f.svc.Submissions.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if !got.SignatureValidated {
		t.Error("Expected assigning the same student to keep the validation")
	}
	if err := f.svc.Submissions.AssignStudent(ctx, submission.ID, &other.ID); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	got, err = f.svc.Submissions.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if got.StudentID == nil || *got.StudentID != other.ID || got.SignatureValidated {
		t.Errorf("Expected reassignment to clear the validation, got %+v", got)
	}

	err = f.svc.Submissions.AssignStudent(ctx, 9999, &student.ID)
	assertErrorIs(t, err, apperrors.ErrSubmissionNotFound)
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exam := f.exam(t, "Midterm")
	submission := f.submission(t, exam.ID, 1)
	for _, n := range []int{1, 0} {
		page := &models.Page{SubmissionID: submission.ID, Path: "scans/1/page.jpg", Number: n}
		if err := f.svc.Submissions.AddPage(ctx, page); err != nil {
			t.Fatalf("AddPage(%d) failed: %v", n, err)
		}
	}

	pages, err := f.svc.Submissions.ListPages(ctx, submission.ID)
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 2 || pages[0].Number != 0 || pages[1].Number != 1 {
		t.Errorf("Expected pages in page order, got %+v", pages)
	}

	err = f.svc.Submissions.AddPage(ctx, &models.Page{SubmissionID: 9999, Path: "orphan.jpg"})
	assertErrorIs(t, err, apperrors.ErrReferentialIntegrity)

	_, err = f.svc.Submissions.ListPages(ctx, 9999)
	assertErrorIs(t, err, apperrors.ErrSubmissionNotFound)
}
