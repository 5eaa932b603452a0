package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/evchart/evchart/internal/domain"
	"github.com/evchart/evchart/internal/repository"
	"github.com/evchart/evchart/internal/schema"
	"github.com/evchart/evchart/internal/transform"
	"github.com/evchart/evchart/internal/validation"
)

// Service runs one ingestion attempt per inbound upload event: parse,
// validate, and either commit transformed rows or persist an error report.
// Execution within one attempt is single-threaded; concurrent attempts for
// the same upload id are assumed not to happen (ordered delivery keyed by
// upload id is an external prerequisite), and the existence check is the
// only safety net if that assumption breaks.
type Service struct {
	registry *schema.Registry
	uploads  repository.UploadRepository
	data     repository.ModuleDataRepository
	reports  repository.ErrorReportRepository
	engine   *validation.Engine
	logger   *zap.Logger
}

// NewService wires the orchestrator.
func NewService(
	registry *schema.Registry,
	uploads repository.UploadRepository,
	data repository.ModuleDataRepository,
	reports repository.ErrorReportRepository,
	stations repository.StationRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		uploads:  uploads,
		data:     data,
		reports:  reports,
		engine:   validation.NewEngine(data, stations),
		logger:   logger,
	}
}

// Request is one resolved upload event.
type Request struct {
	UploadID string
	ModuleID int
	FileType string
	Body     []byte
	Flags    domain.FlagSet
}

// Result is the externally observable outcome of one ingestion attempt.
type Result struct {
	Success         bool   `json:"success"`
	ErrorCount      int    `json:"errorCount"`
	UploadID        string `json:"uploadId"`
	AlreadyIngested bool   `json:"alreadyIngested"`
}

// Ingest processes one upload. Validation failure is a normal outcome: the
// conditions become persisted error records, the status moves to Error, and
// the returned error is nil. Only storage failures return a *StorageError,
// leaving the upload at Processing so redelivery can retry.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	result := Result{UploadID: req.UploadID}

	if req.UploadID == "" {
		return result, errors.New("upload id is required")
	}
	ms, ok := s.registry.ByID(req.ModuleID)
	if !ok {
		return result, fmt.Errorf("unknown module id %d", req.ModuleID)
	}

	// Idempotency: rows already committed mean a previous attempt finished.
	// Success, no writes, no error records, no notification re-trigger.
	exists, err := s.data.Exists(ctx, ms.TableName, req.UploadID)
	if err != nil {
		return result, &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "existence check", Err: err}
	}
	if exists {
		s.logger.Info("upload already ingested, skipping",
			zap.String("upload_id", req.UploadID),
			zap.Int("module_id", req.ModuleID))
		result.Success = true
		result.AlreadyIngested = true
		return result, nil
	}

	upload, uploadFound, err := s.resolveUpload(ctx, req, ms)
	if err != nil {
		return result, err
	}

	table, parseErr := parseTable(req.FileType, req.Body, ms)
	if parseErr != nil {
		// Parse failures are terminal for the message: the submitter still
		// gets a row/column-style report, through the same error-record
		// mechanism as validation conditions.
		s.logger.Warn("upload could not be parsed",
			zap.String("upload_id", req.UploadID),
			zap.Int("module_id", req.ModuleID),
			zap.Error(parseErr))
		condition := domain.Condition{
			Code:        validation.CodeFileParseFailure.String(),
			Description: validation.CodeFileParseFailure.Format(nil),
		}
		if err := s.recordConditions(ctx, req, upload, []domain.Condition{condition}); err != nil {
			return result, err
		}
		if uploadFound {
			if err := s.markError(ctx, req, upload); err != nil {
				return result, err
			}
		}
		result.ErrorCount = 1
		return result, nil
	}

	verdict, err := s.engine.Validate(ctx, ms, table, upload, req.Flags)
	if err != nil {
		return result, &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "validation lookup", Err: err}
	}

	if !verdict.IsCompliant {
		s.logger.Info("upload failed validation",
			zap.String("upload_id", req.UploadID),
			zap.Int("module_id", req.ModuleID),
			zap.Int("conditions", len(verdict.Conditions)),
			zap.Int("rejected_records", verdict.RejectedRecords),
			zap.Int("total_records", verdict.TotalRecords))
		if err := s.recordConditions(ctx, req, upload, verdict.Conditions); err != nil {
			return result, err
		}
		if err := s.markError(ctx, req, upload); err != nil {
			return result, err
		}
		result.ErrorCount = len(verdict.Conditions)
		return result, nil
	}

	records, err := transform.Apply(ms, table, req.Flags, verdict.NoDataRows, req.UploadID)
	if err != nil {
		return result, fmt.Errorf("transform failed for upload %s: %w", req.UploadID, err)
	}

	// All module rows plus the Processing→Draft flip commit as one
	// transaction; a failure here leaves the upload at Processing for retry.
	if err := s.data.WriteBatch(ctx, ms, req.UploadID, records); err != nil {
		return result, &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "batch write", Err: err}
	}

	s.logger.Info("upload ingested",
		zap.String("upload_id", req.UploadID),
		zap.Int("module_id", req.ModuleID),
		zap.Int("records", len(records)))
	result.Success = true
	return result, nil
}

// resolveUpload loads upload metadata, falling back to a stub when the
// metadata row is missing so a parse failure can still be reported.
func (s *Service) resolveUpload(ctx context.Context, req Request, ms *domain.ModuleSchema) (domain.Upload, bool, error) {
	upload, err := s.uploads.Get(ctx, req.UploadID)
	if errors.Is(err, repository.ErrUploadNotFound) {
		s.logger.Warn("upload metadata missing, using stub",
			zap.String("upload_id", req.UploadID))
		return domain.Upload{
			UploadID:         req.UploadID,
			ModuleID:         ms.ModuleID,
			OrganizationName: "Unknown",
			Status:           domain.StatusProcessing,
		}, false, nil
	}
	if err != nil {
		return domain.Upload{}, false, &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "metadata read", Err: err}
	}
	return upload, true, nil
}

func (s *Service) recordConditions(ctx context.Context, req Request, upload domain.Upload, conditions []domain.Condition) error {
	parentName := ""
	if upload.ParentOrganizationName != nil {
		parentName = *upload.ParentOrganizationName
	}

	entries := make([]domain.ErrorRecord, len(conditions))
	for i, c := range conditions {
		entries[i] = domain.ErrorRecord{
			UploadID:               req.UploadID,
			ModuleID:               req.ModuleID,
			OrganizationName:       upload.OrganizationName,
			ParentOrganizationName: parentName,
			Row:                    c.Row,
			Column:                 c.Column,
			Code:                   c.Code,
			Description:            c.Description,
		}
	}

	if err := s.reports.RecordBatch(ctx, entries); err != nil {
		return &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "error report write", Err: err}
	}
	return nil
}

func (s *Service) markError(ctx context.Context, req Request, upload domain.Upload) error {
	if err := s.uploads.UpdateStatus(ctx, req.UploadID, domain.StatusProcessing, domain.StatusError); err != nil {
		return &StorageError{UploadID: req.UploadID, ModuleID: req.ModuleID, Op: "status update", Err: err}
	}
	return nil
}
