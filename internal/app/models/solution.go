package models

import (
	"time"

	"github.com/yigit/gradingdb/internal/pkg/validation"
)

// Solution is the answer to one problem in one submission. It is identified by the
// (submission, problem) pair.
type Solution struct {
	SubmissionID int64 `json:"submissionId" db:"submission_id" validate:"gt=0"`
	ProblemID    int64 `json:"problemId" db:"problem_id" validate:"gt=0"`
	// GradedBy is nil while the solution is ungraded
	GradedBy *int64     `json:"gradedBy,omitempty" db:"graded_by" validate:"required_with=GradedAt"`
	GradedAt *time.Time `json:"gradedAt,omitempty" db:"graded_at" validate:"required_with=GradedBy"`
	Remarks  *string    `json:"remarks,omitempty" db:"remarks"`

	// Relations (populated when needed)
	Feedback []*FeedbackOption `json:"feedback,omitempty" validate:"-"`
}

// SolutionKey is the composite identity of a Solution
type SolutionKey struct {
	SubmissionID int64
	ProblemID    int64
}

// Key returns the composite identity of the solution
func (s *Solution) Key() SolutionKey {
	return SolutionKey{SubmissionID: s.SubmissionID, ProblemID: s.ProblemID}
}

// Graded reports whether a grader has been recorded
func (s *Solution) Graded() bool {
	return s.GradedBy != nil
}

// Validate checks the solution fields, including that graded_by and graded_at are set together
func (s *Solution) Validate() error {
	return validation.Struct(s)
}
