package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// FeedbackOption is a reusable piece of feedback for a problem. One row is shared by every
// solution it is attached to.
type FeedbackOption struct {
	ID          int64   `json:"id" db:"id"`
	ProblemID   int64   `json:"problemId" db:"problem_id" validate:"gt=0"`
	Text        string  `json:"text" db:"text" validate:"notblank"`
	Description *string `json:"description,omitempty" db:"description"`
	Score       *int    `json:"score,omitempty" db:"score"`
}

// Validate checks the feedback option fields
func (f *FeedbackOption) Validate() error {
	return validation.Struct(f)
}
