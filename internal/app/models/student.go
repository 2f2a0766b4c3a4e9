package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Student is a course participant. The ID is the institutional student number, assigned
// outside this system.
type Student struct {
	ID        int64   `json:"id" db:"id" validate:"gt=0"`
	FirstName string  `json:"firstName" db:"first_name" validate:"notblank,max=255"`
	LastName  string  `json:"lastName" db:"last_name" validate:"notblank,max=255"`
	Email     *string `json:"email,omitempty" db:"email" validate:"omitempty,email,max=320"`
}

// Validate checks the student fields
func (s *Student) Validate() error {
	return validation.Struct(s)
}
