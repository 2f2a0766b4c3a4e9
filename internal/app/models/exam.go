package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Exam owns its submissions, problems, scans and exam widgets
type Exam struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name" validate:"notblank,max=255"`
	Token     string `json:"token" db:"token" validate:"omitempty,examtoken"`
	Finalized bool   `json:"finalized" db:"finalized"`
}

// Validate checks the exam fields. An empty token is allowed before creation.
func (e *Exam) Validate() error {
	return validation.Struct(e)
}
