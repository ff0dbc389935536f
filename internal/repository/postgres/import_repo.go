package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// ImportRepository reads the ingestion log consumed by data-quality checks.
type ImportRepository struct {
	db *pgxpool.Pool
}

// NewImportRepository creates a new import repository
func NewImportRepository(db *pgxpool.Pool) *ImportRepository {
	return &ImportRepository{db: db}
}

// ImportFilter restricts the records returned by ListFailedSince.
type ImportFilter struct {
	FileFormat  string // "all" or empty matches every format
	FileSizeMin *int64
	FileSizeMax *int64
}

// ListFailedSince returns import records with a recorded error newer than
// the given time, matching the filter, newest first.
func (r *ImportRepository) ListFailedSince(ctx context.Context, since time.Time, filter ImportFilter, limit int) ([]*domain.ImportRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, file_name, file_format, file_size, error_type, error_details, affected_records, imported_at
		FROM import_records
		WHERE imported_at >= $1 AND error_type IS NOT NULL
	`
	args := []interface{}{since}

	if filter.FileFormat != "" && filter.FileFormat != "all" {
		args = append(args, filter.FileFormat)
		query += ` AND file_format = $2`
	}
	if filter.FileSizeMin != nil {
		args = append(args, *filter.FileSizeMin)
		query += ` AND file_size >= $` + strconv.Itoa(len(args))
	}
	if filter.FileSizeMax != nil {
		args = append(args, *filter.FileSizeMax)
		query += ` AND file_size <= $` + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	query += ` ORDER BY imported_at DESC LIMIT $` + strconv.Itoa(len(args))

	var records []*domain.ImportRecord
	if err := pgxscan.Select(ctx, r.db, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// Record appends one ingestion log entry.
func (r *ImportRepository) Record(ctx context.Context, rec *domain.ImportRecord) error {
	query := `
		INSERT INTO import_records (file_name, file_format, file_size, error_type, error_details, affected_records, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		rec.FileName, rec.FileFormat, rec.FileSize, rec.ErrorType, rec.ErrorDetails, rec.AffectedRecords, rec.ImportedAt,
	)
	return err
}
