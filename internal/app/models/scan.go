package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Scan is the metadata of an uploaded PDF
type Scan struct {
	ID      int64      `json:"id" db:"id"`
	ExamID  int64      `json:"examId" db:"exam_id" validate:"gt=0"`
	Name    string     `json:"name" db:"name" validate:"notblank"`
	Status  ScanStatus `json:"status" db:"status" validate:"oneof=processing success error"`
	Message *string    `json:"message,omitempty" db:"message"`
}

// Validate checks the scan fields
func (s *Scan) Validate() error {
	return validation.Struct(s)
}
