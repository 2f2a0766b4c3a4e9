package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/dberrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

var submissionColumns = []string{"id", "exam_id", "copy_number", "student_id", "signature_validated"}

// SubmissionRepository handles submission database operations
type SubmissionRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(q db.Querier) *SubmissionRepository {
	return &SubmissionRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

func scanSubmission(row pgx.Row, s *models.Submission) error {
	return row.Scan(&s.ID, &s.ExamID, &s.CopyNumber, &s.StudentID, &s.SignatureValidated)
}

// Create inserts a submission and sets its ID
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	sql, args, err := r.sb.Insert("submissions").
		Columns("exam_id", "copy_number", "student_id", "signature_validated").
		Values(submission.ExamID, submission.CopyNumber, submission.StudentID, submission.SignatureValidated).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create submission query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&submission.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "submissions_exam_copy_key") {
			return apperrors.ErrCopyNumberTaken.WithDetails(map[string]interface{}{
				"examId":     submission.ExamID,
				"copyNumber": submission.CopyNumber,
			})
		}
		logger.Error().Err(err).Int64("examID", submission.ExamID).Int("copyNumber", submission.CopyNumber).
			Msg("Error executing create submission query")
		return queryError("creating submission", err)
	}

	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByExamAndCopy retrieves the submission with a given copy number within an exam
func (r *SubmissionRepository) GetByExamAndCopy(ctx context.Context, examID int64, copyNumber int) (*models.Submission, error) {
	return r.getOne(ctx, squirrel.Eq{"exam_id": examID, "copy_number": copyNumber})
}

func (r *SubmissionRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Submission, error) {
	sql, args, err := r.sb.Select(submissionColumns...).
		From("submissions").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get submission query: %w", err)
	}

	submission := &models.Submission{}
	if err := scanSubmission(r.db.QueryRow(ctx, sql, args...), submission); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		logger.Error().Err(err).Msg("Error scanning submission row")
		return nil, queryError("getting submission", err)
	}

	return submission, nil
}

// ListByExam retrieves the submissions of an exam ordered by copy number
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID int64) ([]*models.Submission, error) {
	return r.list(ctx, squirrel.Eq{"exam_id": examID}, "copy_number ASC")
}

// ListByStudent retrieves the submissions assigned to a student
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Submission, error) {
	return r.list(ctx, squirrel.Eq{"student_id": studentID}, "exam_id ASC", "copy_number ASC")
}

func (r *SubmissionRepository) list(ctx context.Context, where squirrel.Eq, orderBy ...string) ([]*models.Submission, error) {
	sql, args, err := r.sb.Select(submissionColumns...).
		From("submissions").
		Where(where).
		OrderBy(orderBy...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list submissions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list submissions query")
		return nil, queryError("querying submissions", err)
	}
	defer rows.Close()

	submissions := []*models.Submission{}
	for rows.Next() {
		submission := &models.Submission{}
		if err := scanSubmission(rows, submission); err != nil {
			return nil, fmt.Errorf("error scanning submission row: %w", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}

	return submissions, nil
}

// SetStudent assigns a submission to a student, or unassigns it when studentID is nil. The
// signature check belonged to the previous student and is reset.
func (r *SubmissionRepository) SetStudent(ctx context.Context, id int64, studentID *int64) error {
	return r.update(ctx, id, "assigning submission student", map[string]interface{}{
		"student_id":          studentID,
		"signature_validated": false,
	})
}

// SetSignatureValidated records whether the signature on the copy was checked
func (r *SubmissionRepository) SetSignatureValidated(ctx context.Context, id int64, validated bool) error {
	return r.update(ctx, id, "validating submission signature", map[string]interface{}{
		"signature_validated": validated,
	})
}

func (r *SubmissionRepository) update(ctx context.Context, id int64, op string, values map[string]interface{}) error {
	sql, args, err := r.sb.Update("submissions").
		SetMap(values).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update submission query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("submissionID", id).Msgf("Error %s", op)
		return queryError(op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSubmissionNotFound
	}

	return nil
}
