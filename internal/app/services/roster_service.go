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

// RosterService defines the operations on the people of a course
type RosterService interface {
	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	StudentSubmissions(ctx context.Context, studentID int64) ([]*models.Submission, error)
	CreateGrader(ctx context.Context, name string) (*models.Grader, error)
	GetGrader(ctx context.Context, id int64) (*models.Grader, error)
	ListGraders(ctx context.Context) ([]*models.Grader, error)
	GradedSolutions(ctx context.Context, graderID int64) ([]*models.Solution, error)
}

// rosterServiceImpl implements the RosterService interface
type rosterServiceImpl struct {
	db *db.PostgresDB
}

// NewRosterService creates a new roster service instance
func NewRosterService(database *db.PostgresDB) RosterService {
	return &rosterServiceImpl{db: database}
}

// CreateStudent stores a new student. A blank email is stored as no email, so any number of
// students may lack one.
func (s *rosterServiceImpl) CreateStudent(ctx context.Context, student *models.Student) error {
	if student == nil {
		return apperrors.NewValidationError("student is nil")
	}
	student.FirstName = strings.TrimSpace(student.FirstName)
	student.LastName = strings.TrimSpace(student.LastName)
	student.Email = optionalText(student.Email)
	if err := student.Validate(); err != nil {
		return err
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Students.Create(ctx, student)
	})
	if err != nil {
		return err
	}

	logger.Info().Int64("studentID", student.ID).Msg("Student created")
	return nil
}

// GetStudent retrieves a student by ID
func (s *rosterServiceImpl) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	var student *models.Student
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		student, err = repos.Students.GetByID(ctx, id)
		return err
	})
	return student, err
}

// GetStudentByEmail retrieves the student owning an email address
func (s *rosterServiceImpl) GetStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ErrStudentNotFound
	}

	var student *models.Student
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		student, err = repos.Students.GetByEmail(ctx, email)
		return err
	})
	return student, err
}

// ListStudents retrieves all students
func (s *rosterServiceImpl) ListStudents(ctx context.Context) ([]*models.Student, error) {
	var students []*models.Student
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		students, err = repos.Students.List(ctx)
		return err
	})
	return students, err
}

// StudentSubmissions retrieves every submission assigned to a student
func (s *rosterServiceImpl) StudentSubmissions(ctx context.Context, studentID int64) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		found, err := repos.Students.Exists(ctx, studentID)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.ErrStudentNotFound
		}

		submissions, err = repos.Submissions.ListByStudent(ctx, studentID)
		return err
	})
	return submissions, err
}

// CreateGrader stores a new grader. Graders cannot be renamed afterwards.
func (s *rosterServiceImpl) CreateGrader(ctx context.Context, name string) (*models.Grader, error) {
	grader := &models.Grader{Name: strings.TrimSpace(name)}
	if err := grader.Validate(); err != nil {
		return nil, err
	}

	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Graders.Create(ctx, grader)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating grader: %w", err)
	}

	logger.Info().Int64("graderID", grader.ID).Str("name", grader.Name).Msg("Grader created")
	return grader, nil
}

// GetGrader retrieves a grader by ID
func (s *rosterServiceImpl) GetGrader(ctx context.Context, id int64) (*models.Grader, error) {
	var grader *models.Grader
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		grader, err = repos.Graders.GetByID(ctx, id)
		return err
	})
	return grader, err
}

// ListGraders retrieves all graders
func (s *rosterServiceImpl) ListGraders(ctx context.Context) ([]*models.Grader, error) {
	var graders []*models.Grader
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		graders, err = repos.Graders.List(ctx)
		return err
	})
	return graders, err
}

// GradedSolutions retrieves the solutions a grader has graded
func (s *rosterServiceImpl) GradedSolutions(ctx context.Context, graderID int64) ([]*models.Solution, error) {
	var solutions []*models.Solution
	err := unitOfWork(ctx, s.db, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Graders.GetByID(ctx, graderID); err != nil {
			return err
		}

		var err error
		solutions, err = repos.Solutions.ListByGrader(ctx, graderID)
		return err
	})
	return solutions, err
}
