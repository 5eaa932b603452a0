package repository

import (
	"context"
	"errors"
	"time"

	"github.com/evchart/evchart/internal/domain"
)

// ErrUploadNotFound is returned when no metadata row exists for an upload id.
var ErrUploadNotFound = errors.New("upload not found")

// ModuleDataRepository persists validated module rows. WriteBatch commits all
// rows for an upload and the Processing→Draft status flip as one transaction;
// a failure leaves nothing written and the status untouched.
type ModuleDataRepository interface {
	Exists(ctx context.Context, tableName string, uploadID string) (bool, error)
	FindExistingKeys(ctx context.Context, tableName string, keyColumns []string, tuples [][]string, uploadID string) (map[string]string, error)
	WriteBatch(ctx context.Context, ms *domain.ModuleSchema, uploadID string, records []domain.Record) error
}

// ErrorReportRepository stores per-condition error records for failed uploads.
type ErrorReportRepository interface {
	RecordBatch(ctx context.Context, entries []domain.ErrorRecord) error
	ListByUpload(ctx context.Context, uploadID string) ([]domain.ErrorRecord, error)
}

// UploadRepository reads upload metadata and performs guarded status
// transitions.
type UploadRepository interface {
	Get(ctx context.Context, uploadID string) (domain.Upload, error)
	UpdateStatus(ctx context.Context, uploadID string, from, to domain.SubmissionStatus) error
}

// StationRepository resolves operational dates for registered stations in one
// batched query.
type StationRepository interface {
	OperationalDates(ctx context.Context, keys []domain.StationKey) (map[domain.StationKey]time.Time, error)
}
