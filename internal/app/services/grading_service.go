package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/repositories"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// GradingService defines the grading actions on solutions
type GradingService interface {
	CreateSolution(ctx context.Context, key models.SolutionKey) (*models.Solution, error)
	GetSolution(ctx context.Context, key models.SolutionKey) (*models.Solution, error)
	ListSolutions(ctx context.Context, submissionID int64) ([]*models.Solution, error)
	GradeSolution(ctx context.Context, key models.SolutionKey, graderID int64) (*models.Solution, error)
	ClearGrade(ctx context.Context, key models.SolutionKey) error
	SetRemarks(ctx context.Context, key models.SolutionKey, remarks *string) error
	AddFeedback(ctx context.Context, key models.SolutionKey, optionID int64) error
	RemoveFeedback(ctx context.Context, key models.SolutionKey, optionID int64) error
	OptionSolutions(ctx context.Context, optionID int64) ([]*models.Solution, error)
	ProblemSolutions(ctx context.Context, problemID int64) ([]*models.Solution, error)
}

// gradingServiceImpl implements the GradingService interface
type gradingServiceImpl struct {
	db  *db.PostgresDB
	now func() time.Time
}

// NewGradingService creates a new grading service instance
func NewGradingService(database *db.PostgresDB) GradingService {
	return &gradingServiceImpl{
		db:  database,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateSolution stores the solution for a (submission, problem) pair that has none. Solutions are
// normally created with their submission or problem; this is the repair path.
func (s *gradingServiceImpl) CreateSolution(ctx context.Context, key models.SolutionKey) (*models.Solution, error) {
	solution := &models.Solution{SubmissionID: key.SubmissionID, ProblemID: key.ProblemID}
	if err := solution.Validate(); err != nil {
		return nil, err
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		submission, err := repos.Submissions.GetByID(ctx, key.SubmissionID)
		if err != nil {
			return asMissingReference(err, "submission", key.SubmissionID)
		}
		problem, err := repos.Problems.GetByID(ctx, key.ProblemID)
		if err != nil {
			return asMissingReference(err, "problem", key.ProblemID)
		}
		if submission.ExamID != problem.ExamID {
			return apperrors.NewReferentialIntegrityError(fmt.Sprintf(
				"problem %d belongs to exam %d, submission %d to exam %d",
				problem.ID, problem.ExamID, submission.ID, submission.ExamID))
		}
		return repos.Solutions.Create(ctx, solution)
	})
	if err != nil {
		return nil, err
	}
	return solution, nil
}

// asMissingReference turns the not found error of a referenced entity into a referential
// integrity error
func asMissingReference(err error, entity string, id int64) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewReferentialIntegrityError(fmt.Sprintf("%s %d does not exist", entity, id))
	}
	return err
}

// GetSolution retrieves a solution with its feedback
func (s *gradingServiceImpl) GetSolution(ctx context.Context, key models.SolutionKey) (*models.Solution, error) {
	var solution *models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if solution, err = repos.Solutions.Get(ctx, key, false); err != nil {
			return err
		}
		solution.Feedback, err = repos.FeedbackOptions.ListBySolution(ctx, key)
		return err
	})
	return solution, err
}

// ListSolutions retrieves the solutions of a submission with their feedback
func (s *gradingServiceImpl) ListSolutions(ctx context.Context, submissionID int64) ([]*models.Solution, error) {
	var solutions []*models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Submissions.GetByID(ctx, submissionID); err != nil {
			return err
		}

		var err error
		if solutions, err = repos.Solutions.ListBySubmission(ctx, submissionID); err != nil {
			return err
		}
		for _, solution := range solutions {
			if solution.Feedback, err = repos.FeedbackOptions.ListBySolution(ctx, solution.Key()); err != nil {
				return err
			}
		}
		return nil
	})
	return solutions, err
}

// GradeSolution records who graded a solution and when. Regrading overwrites both fields.
func (s *gradingServiceImpl) GradeSolution(ctx context.Context, key models.SolutionKey, graderID int64) (*models.Solution, error) {
	var solution *models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if solution, err = repos.Solutions.Get(ctx, key, true); err != nil {
			return err
		}
		if _, err := repos.Graders.GetByID(ctx, graderID); err != nil {
			return asMissingReference(err, "grader", graderID)
		}

		gradedAt := s.now()
		solution.GradedBy = &graderID
		solution.GradedAt = &gradedAt
		if err := solution.Validate(); err != nil {
			return err
		}
		if err := repos.Solutions.SetGrade(ctx, key, solution.GradedBy, solution.GradedAt); err != nil {
			return err
		}

		solution.Feedback, err = repos.FeedbackOptions.ListBySolution(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	lgr := logger.WithFields(map[string]interface{}{
		"submissionID": key.SubmissionID,
		"problemID":    key.ProblemID,
		"graderID":     graderID,
	})
	lgr.Debug().Msg("Solution graded")
	return solution, nil
}

// ClearGrade removes the grader and grading time of a solution together
func (s *gradingServiceImpl) ClearGrade(ctx context.Context, key models.SolutionKey) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Solutions.SetGrade(ctx, key, nil, nil)
	})
}

// SetRemarks sets the remarks of a solution. Blank remarks clear them.
func (s *gradingServiceImpl) SetRemarks(ctx context.Context, key models.SolutionKey, remarks *string) error {
	remarks = optionalText(remarks)
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Solutions.SetRemarks(ctx, key, remarks)
	})
}

// AddFeedback attaches a feedback option of the solution's problem to the solution. The option
// row is shared, never copied.
func (s *gradingServiceImpl) AddFeedback(ctx context.Context, key models.SolutionKey, optionID int64) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Solutions.Get(ctx, key, false); err != nil {
			return err
		}
		option, err := repos.FeedbackOptions.GetByID(ctx, optionID)
		if err != nil {
			return err
		}
		if option.ProblemID != key.ProblemID {
			return apperrors.NewReferentialIntegrityError(fmt.Sprintf(
				"feedback option %d belongs to problem %d, not %d", optionID, option.ProblemID, key.ProblemID))
		}
		return repos.Solutions.AddFeedback(ctx, key, optionID)
	})
}

// RemoveFeedback detaches a feedback option from one solution. Other solutions keep it and the
// option itself stays available.
func (s *gradingServiceImpl) RemoveFeedback(ctx context.Context, key models.SolutionKey, optionID int64) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Solutions.Get(ctx, key, false); err != nil {
			return err
		}
		removed, err := repos.Solutions.RemoveFeedback(ctx, key, optionID)
		if err != nil {
			return err
		}
		if !removed {
			logger.Debug().Int64("optionID", optionID).Msg("Feedback option was not attached, nothing removed")
		}
		return nil
	})
}

// OptionSolutions retrieves every solution a feedback option is attached to
func (s *gradingServiceImpl) OptionSolutions(ctx context.Context, optionID int64) ([]*models.Solution, error) {
	var solutions []*models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.FeedbackOptions.GetByID(ctx, optionID); err != nil {
			return err
		}

		var err error
		solutions, err = repos.Solutions.ListByFeedbackOption(ctx, optionID)
		return err
	})
	return solutions, err
}

// ProblemSolutions retrieves the solutions of every submission to a problem with their feedback
func (s *gradingServiceImpl) ProblemSolutions(ctx context.Context, problemID int64) ([]*models.Solution, error) {
	var solutions []*models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Problems.GetByID(ctx, problemID); err != nil {
			return err
		}

		var err error
		if solutions, err = repos.Solutions.ListByProblem(ctx, problemID); err != nil {
			return err
		}
		for _, solution := range solutions {
			if solution.Feedback, err = repos.FeedbackOptions.ListBySolution(ctx, solution.Key()); err != nil {
				return err
			}
		}
		return nil
	})
	return solutions, err
}
