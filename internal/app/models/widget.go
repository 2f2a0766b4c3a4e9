package models

import (
	"fmt"

	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/validation"
)

// Widget is a positioned box on an exam page. Kind selects which payload is set: Exam for
// WidgetKindExam, Problem for WidgetKindProblem.
type Widget struct {
	ID int64 `json:"id" db:"id"`
	// Name distinguishes widgets for barcodes, student ids and problems
	Name *string    `json:"name,omitempty" db:"name"`
	Kind WidgetKind `json:"kind" db:"kind" validate:"oneof=exam problem"`
	X    int        `json:"x" db:"x"`
	Y    int        `json:"y" db:"y"`

	Exam    *ExamWidget    `json:"exam,omitempty"`
	Problem *ProblemWidget `json:"problem,omitempty"`
}

// ExamWidget places a widget on an exam as a whole
type ExamWidget struct {
	ExamID int64 `json:"examId" db:"exam_id" validate:"gt=0"`
}

// ProblemWidget marks the answer area of a problem
type ProblemWidget struct {
	ProblemID *int64 `json:"problemId,omitempty" db:"problem_id" validate:"omitempty,gt=0"`
	Page      int    `json:"page" db:"page" validate:"gte=0"`
	Width     int    `json:"width" db:"width" validate:"gt=0"`
	Height    int    `json:"height" db:"height" validate:"gt=0"`
}

// NewExamWidget builds an exam widget
func NewExamWidget(examID int64, name *string, x, y int) *Widget {
	return &Widget{
		Name: name,
		Kind: WidgetKindExam,
		X:    x,
		Y:    y,
		Exam: &ExamWidget{ExamID: examID},
	}
}

// NewProblemWidget builds an unlinked problem widget
func NewProblemWidget(name *string, x, y, page, width, height int) *Widget {
	return &Widget{
		Name:    name,
		Kind:    WidgetKindProblem,
		X:       x,
		Y:       y,
		Problem: &ProblemWidget{Page: page, Width: width, Height: height},
	}
}

// Validate checks the widget fields and that exactly the payload matching Kind is set
func (w *Widget) Validate() error {
	if err := validation.Struct(w); err != nil {
		return err
	}

	switch w.Kind {
	case WidgetKindExam:
		if w.Exam == nil || w.Problem != nil {
			return apperrors.NewValidationError("exam widget must carry only an exam payload")
		}
	case WidgetKindProblem:
		if w.Problem == nil || w.Exam != nil {
			return apperrors.NewValidationError("problem widget must carry only a problem payload")
		}
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown widget kind %q", w.Kind))
	}

	return nil
}
