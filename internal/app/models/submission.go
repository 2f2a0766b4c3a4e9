package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Submission is one scanned copy of an exam
type Submission struct {
	ID                 int64  `json:"id" db:"id"`
	ExamID             int64  `json:"examId" db:"exam_id" validate:"gt=0"`
	CopyNumber         int    `json:"copyNumber" db:"copy_number" validate:"gt=0"`
	StudentID          *int64 `json:"studentId,omitempty" db:"student_id" validate:"omitempty,gt=0"`
	SignatureValidated bool   `json:"signatureValidated" db:"signature_validated"`
}

// Validate checks the submission fields
func (s *Submission) Validate() error {
	return validation.Struct(s)
}
