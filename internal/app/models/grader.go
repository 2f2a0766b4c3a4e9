package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Grader is a person who grades solutions. Graders are never renamed or deleted.
type Grader struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name" validate:"notblank,max=255"`
}

// Validate checks the grader fields
func (g *Grader) Validate() error {
	return validation.Struct(g)
}
