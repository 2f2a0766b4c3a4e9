package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/yigit/gradingdb/internal/pkg/apperrors"
)

type sample struct {
	Name  string `json:"name" validate:"notblank,max=8"`
	Token string `json:"token" validate:"omitempty,examtoken"`
	Skip  string `json:"-" validate:"omitempty,max=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr bool
		field   string
	}{
		{name: "valid", input: sample{Name: "Midterm", Token: "0123456789ab"}},
		{name: "empty token allowed", input: sample{Name: "Midterm"}},
		{name: "blank name", input: sample{Name: "   "}, wantErr: true, field: "name"},
		{name: "long name", input: sample{Name: "Final exam"}, wantErr: true, field: "name"},
		{name: "uppercase token", input: sample{Name: "Q", Token: "0123456789AB"}, wantErr: true, field: "token"},
		{name: "short token", input: sample{Name: "Q", Token: "abc"}, wantErr: true, field: "token"},
		{name: "untagged json name", input: sample{Name: "Q", Skip: "xx"}, wantErr: true, field: "Skip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			if !errors.Is(err, apperrors.ErrValidationFailed) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			var custom *apperrors.CustomError
			if !errors.As(err, &custom) {
				t.Fatalf("Expected a CustomError, got %T", err)
			}
			if _, ok := custom.Details[tt.field]; !ok {
				t.Errorf("Expected details to name %q, got %v", tt.field, custom.Details)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected message to mention %q, got %q", tt.field, err.Error())
			}
		})
	}
}
