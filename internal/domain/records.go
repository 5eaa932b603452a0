package domain

import "time"

// Record is one transformed row ready for persistence, keyed by column name.
// Values are storage-typed: int64, decimal.Decimal, int16 (booleans as 1/0),
// time.Time, string, or nil.
type Record map[string]any

// ErrorRecord is one persisted validation condition, scoped to the upload it
// came from and tagged with the submitter and approving authority so the
// report can be rendered without further lookups.
type ErrorRecord struct {
	UploadID               string
	ModuleID               int
	OrganizationName       string
	ParentOrganizationName string
	Row                    *int
	Column                 string
	Code                   string
	Description            string
	CreatedAt              time.Time
}

// StationKey identifies a registered station for operational-date lookups.
type StationKey struct {
	StationID       string
	NetworkProvider string
}
