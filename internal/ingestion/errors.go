package ingestion

import "fmt"

// StorageError wraps a storage-layer failure during an ingestion attempt.
// It is not retried here: the upload stays at Processing and the external
// delivery mechanism's at-least-once redelivery re-attempts the identical
// ingestion, protected by the existence check.
type StorageError struct {
	UploadID string
	ModuleID int
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s for upload %s (module %d): %v", e.Op, e.UploadID, e.ModuleID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
