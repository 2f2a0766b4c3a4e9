package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/repositories"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// SubmissionService defines the operations on scanned exam copies
type SubmissionService interface {
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	GetSubmission(ctx context.Context, id int64) (*models.Submission, error)
	ListSubmissions(ctx context.Context, examID int64) ([]*models.Submission, error)
	AssignStudent(ctx context.Context, submissionID int64, studentID *int64) error
	ValidateSignature(ctx context.Context, submissionID int64, validated bool) error
	AddPage(ctx context.Context, page *models.Page) error
	ListPages(ctx context.Context, submissionID int64) ([]*models.Page, error)
}

// submissionServiceImpl implements the SubmissionService interface
type submissionServiceImpl struct {
	db *db.PostgresDB
}

// NewSubmissionService creates a new submission service instance
func NewSubmissionService(database *db.PostgresDB) SubmissionService {
	return &submissionServiceImpl{db: database}
}

// CreateSubmission stores a copy of an exam and one empty solution per problem of the exam
func (s *submissionServiceImpl) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if submission == nil {
		return apperrors.NewValidationError("submission is nil")
	}
	if err := submission.Validate(); err != nil {
		return err
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if err := repos.Submissions.Create(ctx, submission); err != nil {
			return err
		}

		created, err := repos.Solutions.CreateForSubmission(ctx, submission.ID, submission.ExamID)
		if err != nil {
			return err
		}
		logger.Debug().Int64("submissionID", submission.ID).Int64("solutions", created).Msg("Submission solutions created")
		return nil
	})
	if err != nil {
		return fmt.Errorf("error creating submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID
func (s *submissionServiceImpl) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	var submission *models.Submission
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		submission, err = repos.Submissions.GetByID(ctx, id)
		return err
	})
	return submission, err
}

// ListSubmissions retrieves the submissions of an exam
func (s *submissionServiceImpl) ListSubmissions(ctx context.Context, examID int64) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Exams.GetByID(ctx, examID); err != nil {
			return err
		}

		var err error
		submissions, err = repos.Submissions.ListByExam(ctx, examID)
		return err
	})
	return submissions, err
}

// AssignStudent links a submission to a student, or unlinks it when studentID is nil. Changing
// the student clears the signature validation; assigning the same student again is a no-op.
func (s *submissionServiceImpl) AssignStudent(ctx context.Context, submissionID int64, studentID *int64) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		submission, err := repos.Submissions.GetByID(ctx, submissionID)
		if err != nil {
			return err
		}
		if sameStudent(submission.StudentID, studentID) {
			return nil
		}

		if studentID != nil {
			found, err := repos.Students.Exists(ctx, *studentID)
			if err != nil {
				return err
			}
			if !found {
				return apperrors.NewReferentialIntegrityError(fmt.Sprintf("student %d does not exist", *studentID))
			}
		}
		return repos.Submissions.SetStudent(ctx, submissionID, studentID)
	})
}

func sameStudent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ValidateSignature records whether the signature on a copy matches its student. Only assigned
// submissions can be validated.
func (s *submissionServiceImpl) ValidateSignature(ctx context.Context, submissionID int64, validated bool) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		submission, err := repos.Submissions.GetByID(ctx, submissionID)
		if err != nil {
			return err
		}
		if validated && submission.StudentID == nil {
			return apperrors.NewInvalidStateTransitionError(
				fmt.Sprintf("submission %d has no student to validate", submissionID))
		}
		return repos.Submissions.SetSignatureValidated(ctx, submissionID, validated)
	})
}

// AddPage stores the location of a scanned page of a submission
func (s *submissionServiceImpl) AddPage(ctx context.Context, page *models.Page) error {
	if page == nil {
		return apperrors.NewValidationError("page is nil")
	}
	page.Path = strings.TrimSpace(page.Path)
	if err := page.Validate(); err != nil {
		return err
	}

	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Pages.Create(ctx, page)
	})
}

// ListPages retrieves the pages of a submission in page order
func (s *submissionServiceImpl) ListPages(ctx context.Context, submissionID int64) ([]*models.Page, error) {
	var pages []*models.Page
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Submissions.GetByID(ctx, submissionID); err != nil {
			return err
		}

		var err error
		pages, err = repos.Pages.ListBySubmission(ctx, submissionID)
		return err
	})
	return pages, err
}
