package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evchart/evchart/internal/domain"
)

type errorReportRepository struct {
	pool *pgxpool.Pool
}

// NewErrorReportRepository wires a repository backed by pgxpool.
func NewErrorReportRepository(pool *pgxpool.Pool) ErrorReportRepository {
	return &errorReportRepository{pool: pool}
}

func (r *errorReportRepository) RecordBatch(ctx context.Context, entries []domain.ErrorRecord) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		var row any
		if entry.Row != nil {
			row = *entry.Row
		}
		batch.Queue(
			`INSERT INTO error_records
			   (upload_id, module_id, organization_name, parent_organization_name, error_row, header_name, error_code, error_description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entry.UploadID,
			entry.ModuleID,
			entry.OrganizationName,
			entry.ParentOrganizationName,
			row,
			entry.Column,
			entry.Code,
			entry.Description,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to record error report entry: %w", err)
		}
	}
	return nil
}

func (r *errorReportRepository) ListByUpload(ctx context.Context, uploadID string) ([]domain.ErrorRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT upload_id, module_id, organization_name, parent_organization_name, error_row, header_name, error_code, error_description, created_at
		 FROM error_records
		 WHERE upload_id = $1
		 ORDER BY error_row NULLS FIRST, header_name, id`,
		uploadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list error records: %w", err)
	}
	defer rows.Close()

	entries := []domain.ErrorRecord{}
	for rows.Next() {
		var (
			entry     domain.ErrorRecord
			errorRow  pgtype.Int4
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.UploadID,
			&entry.ModuleID,
			&entry.OrganizationName,
			&entry.ParentOrganizationName,
			&errorRow,
			&entry.Column,
			&entry.Code,
			&entry.Description,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan error record: %w", scanErr)
		}
		if errorRow.Valid {
			value := int(errorRow.Int32)
			entry.Row = &value
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate error records: %w", rowsErr)
	}

	return entries, nil
}
