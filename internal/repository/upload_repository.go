package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evchart/evchart/internal/domain"
)

type uploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository wires a repository backed by pgxpool.
func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepository{pool: pool}
}

func (r *uploadRepository) Get(ctx context.Context, uploadID string) (domain.Upload, error) {
	var (
		upload     domain.Upload
		parentID   pgtype.Text
		parentName pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx,
		`SELECT upload_id, module_id, organization_id, organization_name,
		        parent_organization_id, parent_organization_name,
		        quarter, year, status, created_at, updated_at
		 FROM upload_submissions
		 WHERE upload_id = $1`,
		uploadID,
	).Scan(
		&upload.UploadID,
		&upload.ModuleID,
		&upload.OrganizationID,
		&upload.OrganizationName,
		&parentID,
		&parentName,
		&upload.Quarter,
		&upload.Year,
		&upload.Status,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Upload{}, ErrUploadNotFound
	}
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to get upload %s: %w", uploadID, err)
	}

	if parentID.Valid {
		upload.ParentOrganizationID = &parentID.String
	}
	if parentName.Valid {
		upload.ParentOrganizationName = &parentName.String
	}
	if createdAt.Valid {
		upload.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		upload.UpdatedAt = updatedAt.Time
	}
	return upload, nil
}

func (r *uploadRepository) UpdateStatus(ctx context.Context, uploadID string, from, to domain.SubmissionStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("illegal status transition %s → %s for upload %s", from, to, uploadID)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE upload_submissions SET status = $1, updated_at = now() WHERE upload_id = $2 AND status = $3`,
		to, uploadID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update status for upload %s: %w", uploadID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upload %s is not in %s status", uploadID, from)
	}
	return nil
}
