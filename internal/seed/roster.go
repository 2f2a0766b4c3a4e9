package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/app/services"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"gopkg.in/yaml.v3"
)

// RosterEntry is one student line of a roster file
type RosterEntry struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// Roster is the list of course participants exported by the student administration
type Roster struct {
	Students []RosterEntry `yaml:"students"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Created int
	Skipped int
	Failed  int
}

// LoadRoster reads a YAML roster file
func LoadRoster(path string) (*Roster, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var roster Roster
	if err := yaml.Unmarshal(content, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	return &roster, nil
}

// ImportRoster creates every student of the roster. Students whose ID is already stored are
// skipped, so the same roster can be imported again as the course grows. Other failures do not
// stop the import; they are returned joined.
func ImportRoster(ctx context.Context, roster services.RosterService, entries *Roster, lgr zerolog.Logger) (ImportResult, error) {
	var (
		result   ImportResult
		finalErr error
	)

	for _, entry := range entries.Students {
		student := &models.Student{
			ID:        entry.ID,
			FirstName: entry.FirstName,
			LastName:  entry.LastName,
			Email:     &entry.Email,
		}

		err := roster.CreateStudent(ctx, student)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, apperrors.ErrStudentAlreadyExists):
			result.Skipped++
		default:
			result.Failed++
			lgr.Error().Err(err).Int64("studentID", entry.ID).Msg("Error importing student")
			finalErr = errors.Join(finalErr, fmt.Errorf("student %d: %w", entry.ID, err))
		}
	}

	lgr.Info().Int("created", result.Created).Int("skipped", result.Skipped).Int("failed", result.Failed).
		Msg("Roster imported")
	return result, finalErr
}
