package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/repositories"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
	"github.com/yigit/gradingdb/internal/pkg/token"
)

// ExamService defines the operations on exams and everything laid out on them
type ExamService interface {
	CreateExam(ctx context.Context, name string) (*models.Exam, error)
	GetExam(ctx context.Context, id int64) (*models.Exam, error)
	GetExamByToken(ctx context.Context, examToken string) (*models.Exam, error)
	ListExams(ctx context.Context) ([]*models.Exam, error)
	FinalizeExam(ctx context.Context, id int64) error
	DeleteExam(ctx context.Context, id int64) error

	CreateProblem(ctx context.Context, problem *models.Problem, widget *models.Widget) error
	GetProblem(ctx context.Context, id int64) (*models.Problem, error)
	ListProblems(ctx context.Context, examID int64) ([]*models.Problem, error)
	ProblemWidget(ctx context.Context, problemID int64) (*models.Widget, error)
	DeleteProblem(ctx context.Context, id int64) error

	AddFeedbackOption(ctx context.Context, option *models.FeedbackOption) error
	ListFeedbackOptions(ctx context.Context, problemID int64) ([]*models.FeedbackOption, error)

	CreateExamWidget(ctx context.Context, widget *models.Widget) error
	ListExamWidgets(ctx context.Context, examID int64) ([]*models.Widget, error)

	CreateScan(ctx context.Context, examID int64, name string) (*models.Scan, error)
	UpdateScanStatus(ctx context.Context, id int64, status models.ScanStatus, message *string) error
	ListScans(ctx context.Context, examID int64) ([]*models.Scan, error)
}

// examServiceImpl implements the ExamService interface
type examServiceImpl struct {
	db     *db.PostgresDB
	tokens *token.Generator
}

// NewExamService creates a new exam service instance
func NewExamService(database *db.PostgresDB, tokens *token.Generator) ExamService {
	return &examServiceImpl{
		db:     database,
		tokens: tokens,
	}
}

// CreateExam stores a new exam under a freshly generated token. The ID is reserved first so the
// token can be derived from it, then each candidate is inserted inside a savepoint: a candidate
// taken by a concurrent exam only rolls back the savepoint and the next one is tried.
func (s *examServiceImpl) CreateExam(ctx context.Context, name string) (*models.Exam, error) {
	exam := &models.Exam{Name: strings.TrimSpace(name)}
	if err := exam.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		exams := repositories.NewExamRepository(tx)

		id, err := exams.NextID(ctx)
		if err != nil {
			return err
		}
		exam.ID = id

		claim := func(ctx context.Context, candidate string) (bool, error) {
			taken, err := exams.TokenExists(ctx, candidate)
			if err != nil || taken {
				return false, err
			}

			exam.Token = candidate
			err = pgx.BeginFunc(ctx, tx, func(savepoint pgx.Tx) error {
				return repositories.NewExamRepository(savepoint).Create(ctx, exam)
			})
			if errors.Is(err, apperrors.ErrExamTokenTaken) {
				return false, nil
			}
			return err == nil, err
		}

		_, err = s.tokens.Generate(ctx, token.Seed(exam.Name, exam.ID), claim)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating exam: %w", err)
	}

	logger.Info().Int64("examID", exam.ID).Str("token", exam.Token).Msg("Exam created")
	return exam, nil
}

// GetExam retrieves an exam by ID
func (s *examServiceImpl) GetExam(ctx context.Context, id int64) (*models.Exam, error) {
	var exam *models.Exam
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		exam, err = repos.Exams.GetByID(ctx, id)
		return err
	})
	return exam, err
}

// GetExamByToken retrieves an exam by its public token
func (s *examServiceImpl) GetExamByToken(ctx context.Context, examToken string) (*models.Exam, error) {
	if !token.Valid(examToken) {
		return nil, apperrors.ErrExamNotFound
	}

	var exam *models.Exam
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		exam, err = repos.Exams.GetByToken(ctx, examToken)
		return err
	})
	return exam, err
}

// ListExams retrieves all exams
func (s *examServiceImpl) ListExams(ctx context.Context) ([]*models.Exam, error) {
	var exams []*models.Exam
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		exams, err = repos.Exams.List(ctx)
		return err
	})
	return exams, err
}

// FinalizeExam freezes the layout of an exam. Finalizing twice is a no-op.
func (s *examServiceImpl) FinalizeExam(ctx context.Context, id int64) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Exams.SetFinalized(ctx, id, true)
	})
}

// DeleteExam removes an exam and everything it owns
func (s *examServiceImpl) DeleteExam(ctx context.Context, id int64) error {
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Exams.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.Info().Int64("examID", id).Msg("Exam deleted")
	return nil
}

// editableExam loads the exam a layout change targets. A missing exam is a dangling reference,
// a finalized one no longer accepts layout changes.
func editableExam(ctx context.Context, repos *repositories.Repositories, examID int64) (*models.Exam, error) {
	exam, err := repos.Exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewReferentialIntegrityError(fmt.Sprintf("exam %d does not exist", examID))
		}
		return nil, err
	}
	if exam.Finalized {
		return nil, apperrors.NewInvalidStateTransitionError(fmt.Sprintf("exam %d is finalized", examID))
	}
	return exam, nil
}

// CreateProblem adds a problem to an exam together with its widget, and creates the problem's
// solution for every submission already stored for the exam
func (s *examServiceImpl) CreateProblem(ctx context.Context, problem *models.Problem, widget *models.Widget) error {
	if problem == nil || widget == nil {
		return apperrors.NewValidationError("problem and widget are required")
	}
	problem.Name = strings.TrimSpace(problem.Name)
	if err := problem.Validate(); err != nil {
		return err
	}
	if widget.Kind != models.WidgetKindProblem {
		return apperrors.NewValidationError("a problem needs a problem widget")
	}
	if err := widget.Validate(); err != nil {
		return err
	}
	if widget.Problem.ProblemID != nil {
		return apperrors.ErrWidgetAlreadyLinked
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := editableExam(ctx, repos, problem.ExamID); err != nil {
			return err
		}
		if err := repos.Problems.Create(ctx, problem); err != nil {
			return err
		}

		widget.Problem.ProblemID = &problem.ID
		if err := repos.Widgets.Create(ctx, widget); err != nil {
			return err
		}

		created, err := repos.Solutions.CreateForProblem(ctx, problem.ID, problem.ExamID)
		if err != nil {
			return err
		}
		logger.Debug().Int64("problemID", problem.ID).Int64("solutions", created).Msg("Problem solutions created")
		return nil
	})
	if err != nil {
		widget.Problem.ProblemID = nil
		return fmt.Errorf("error creating problem: %w", err)
	}

	problem.Widget = widget
	return nil
}

// GetProblem retrieves a problem with its widget
func (s *examServiceImpl) GetProblem(ctx context.Context, id int64) (*models.Problem, error) {
	var problem *models.Problem
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if problem, err = repos.Problems.GetByID(ctx, id); err != nil {
			return err
		}
		return attachWidget(ctx, repos, problem)
	})
	return problem, err
}

func attachWidget(ctx context.Context, repos *repositories.Repositories, problem *models.Problem) error {
	widget, err := repos.Widgets.GetByProblem(ctx, problem.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrWidgetNotFound) {
			return nil
		}
		return err
	}
	problem.Widget = widget
	return nil
}

// ListProblems retrieves the problems of an exam with their widgets
func (s *examServiceImpl) ListProblems(ctx context.Context, examID int64) ([]*models.Problem, error) {
	var problems []*models.Problem
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Exams.GetByID(ctx, examID); err != nil {
			return err
		}

		var err error
		if problems, err = repos.Problems.ListByExam(ctx, examID); err != nil {
			return err
		}
		for _, problem := range problems {
			if err := attachWidget(ctx, repos, problem); err != nil {
				return err
			}
		}
		return nil
	})
	return problems, err
}

// ProblemWidget retrieves the widget of a problem
func (s *examServiceImpl) ProblemWidget(ctx context.Context, problemID int64) (*models.Widget, error) {
	var widget *models.Widget
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Problems.GetByID(ctx, problemID); err != nil {
			return err
		}

		var err error
		widget, err = repos.Widgets.GetByProblem(ctx, problemID)
		return err
	})
	return widget, err
}

// DeleteProblem removes a problem with its widget, feedback options and solutions
func (s *examServiceImpl) DeleteProblem(ctx context.Context, id int64) error {
	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		problem, err := repos.Problems.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := editableExam(ctx, repos, problem.ExamID); err != nil {
			return err
		}
		return repos.Problems.Delete(ctx, id)
	})
}

// AddFeedbackOption stores a feedback option for a problem. Options can be added while grading,
// including on finalized exams.
func (s *examServiceImpl) AddFeedbackOption(ctx context.Context, option *models.FeedbackOption) error {
	if option == nil {
		return apperrors.NewValidationError("feedback option is nil")
	}
	option.Text = strings.TrimSpace(option.Text)
	option.Description = optionalText(option.Description)
	if err := option.Validate(); err != nil {
		return err
	}

	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.FeedbackOptions.Create(ctx, option)
	})
}

// ListFeedbackOptions retrieves the feedback options of a problem
func (s *examServiceImpl) ListFeedbackOptions(ctx context.Context, problemID int64) ([]*models.FeedbackOption, error) {
	var options []*models.FeedbackOption
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Problems.GetByID(ctx, problemID); err != nil {
			return err
		}

		var err error
		options, err = repos.FeedbackOptions.ListByProblem(ctx, problemID)
		return err
	})
	return options, err
}

// CreateExamWidget places a widget on an exam that is not finalized yet
func (s *examServiceImpl) CreateExamWidget(ctx context.Context, widget *models.Widget) error {
	if widget == nil {
		return apperrors.NewValidationError("widget is nil")
	}
	if widget.Kind != models.WidgetKindExam {
		return apperrors.NewValidationError("an exam widget must have kind exam")
	}
	if err := widget.Validate(); err != nil {
		return err
	}

	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := editableExam(ctx, repos, widget.Exam.ExamID); err != nil {
			return err
		}
		return repos.Widgets.Create(ctx, widget)
	})
}

// ListExamWidgets retrieves the exam widgets of an exam
func (s *examServiceImpl) ListExamWidgets(ctx context.Context, examID int64) ([]*models.Widget, error) {
	var widgets []*models.Widget
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Exams.GetByID(ctx, examID); err != nil {
			return err
		}

		var err error
		widgets, err = repos.Widgets.ListByExam(ctx, examID)
		return err
	})
	return widgets, err
}

// CreateScan records an uploaded PDF in the processing state
func (s *examServiceImpl) CreateScan(ctx context.Context, examID int64, name string) (*models.Scan, error) {
	scan := &models.Scan{
		ExamID: examID,
		Name:   strings.TrimSpace(name),
		Status: models.ScanStatusProcessing,
	}
	if err := scan.Validate(); err != nil {
		return nil, err
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Scans.Create(ctx, scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// UpdateScanStatus changes the status of a scan. A processing scan may report progress any
// number of times; success and error are final.
func (s *examServiceImpl) UpdateScanStatus(ctx context.Context, id int64, status models.ScanStatus, message *string) error {
	if !status.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown scan status %q", status))
	}
	message = optionalText(message)

	return unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		scan, err := repos.Scans.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if scan.Status != models.ScanStatusProcessing {
			return apperrors.NewInvalidStateTransitionError(
				fmt.Sprintf("scan %d already finished with status %s", id, scan.Status))
		}
		return repos.Scans.UpdateStatus(ctx, id, status, message)
	})
}

// ListScans retrieves the scans of an exam
func (s *examServiceImpl) ListScans(ctx context.Context, examID int64) ([]*models.Scan, error) {
	var scans []*models.Scan
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Exams.GetByID(ctx, examID); err != nil {
			return err
		}

		var err error
		scans, err = repos.Scans.ListByExam(ctx, examID)
		return err
	})
	return scans, err
}
