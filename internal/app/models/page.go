package models

import "github.com/yigit/gradingdb/internal/pkg/validation"

// Page is a scanned page of a submission. Path points into external storage.
type Page struct {
	ID           int64  `json:"id" db:"id"`
	SubmissionID int64  `json:"submissionId" db:"submission_id" validate:"gt=0"`
	Path         string `json:"path" db:"path" validate:"notblank"`
	Number       int    `json:"number" db:"number" validate:"gte=0"`
}

// Validate checks the page fields
func (p *Page) Validate() error {
	return validation.Struct(p)
}
