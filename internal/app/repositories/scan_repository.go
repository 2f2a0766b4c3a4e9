package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/gradingdb/internal/app/models"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
)

// ScanRepository handles scan database operations
type ScanRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewScanRepository creates a new ScanRepository
func NewScanRepository(q db.Querier) *ScanRepository {
	return &ScanRepository{
		db: q,
		sb: newStatementBuilder(),
	}
}

func scanScan(row pgx.Row) (*models.Scan, error) {
	var (
		scan   models.Scan
		status string
	)
	if err := row.Scan(&scan.ID, &scan.ExamID, &scan.Name, &status, &scan.Message); err != nil {
		return nil, err
	}
	scan.Status = models.ScanStatus(status)
	return &scan, nil
}

// Create inserts a scan and sets its ID
func (r *ScanRepository) Create(ctx context.Context, scan *models.Scan) error {
	sql, args, err := r.sb.Insert("scans").
		Columns("exam_id", "name", "status", "message").
		Values(scan.ExamID, scan.Name, string(scan.Status), scan.Message).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create scan query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&scan.ID); err != nil {
		logger.Error().Err(err).Int64("examID", scan.ExamID).Str("name", scan.Name).Msg("Error executing create scan query")
		return queryError("creating scan", err)
	}

	return nil
}

// GetByID retrieves a scan by ID
func (r *ScanRepository) GetByID(ctx context.Context, id int64) (*models.Scan, error) {
	sql, args, err := r.sb.Select("id", "exam_id", "name", "status", "message").
		From("scans").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get scan query: %w", err)
	}

	scan, err := scanScan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrScanNotFound
		}
		return nil, queryError("getting scan", err)
	}

	return scan, nil
}

// ListByExam retrieves the scans uploaded for an exam
func (r *ScanRepository) ListByExam(ctx context.Context, examID int64) ([]*models.Scan, error) {
	sql, args, err := r.sb.Select("id", "exam_id", "name", "status", "message").
		From("scans").
		Where(squirrel.Eq{"exam_id": examID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list scans query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError("querying scans", err)
	}
	defer rows.Close()

	scans := []*models.Scan{}
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan rows: %w", err)
	}

	return scans, nil
}

// UpdateStatus moves a scan to a new status with an optional diagnostic message
func (r *ScanRepository) UpdateStatus(ctx context.Context, id int64, status models.ScanStatus, message *string) error {
	sql, args, err := r.sb.Update("scans").
		Set("status", string(status)).
		Set("message", message).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update scan status query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("scanID", id).Str("status", string(status)).Msg("Error updating scan status")
		return queryError("updating scan status", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrScanNotFound
	}

	return nil
}
