package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Problem is a gradable question of an exam. Problems are fixed once the exam is set up.
type Problem struct {
	ID     int64  `json:"id" db:"id"`
	ExamID int64  `json:"examId" db:"exam_id" validate:"gt=0"`
	Name   string `json:"name" db:"name" validate:"notblank,max=255"`

	// Relations (populated when needed)
	Widget *Widget `json:"widget,omitempty" validate:"-"`
}

// Validate checks the problem fields
func (p *Problem) Validate() error {
	return validation.Struct(p)
}
