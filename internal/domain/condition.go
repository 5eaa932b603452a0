package domain

// Condition is a single detected validation problem. Row is nil for
// column-level and file-level conditions; Column is empty for file-level
// conditions. Conditions are data, never errors: a non-compliant upload is
// the expected outcome of validating bad input.
type Condition struct {
	Row         *int   `json:"errorRow"`
	Column      string `json:"headerName"`
	Code        string `json:"errorCode"`
	Description string `json:"errorDescription"`
}

// RowLevel reports whether the condition addresses a specific row.
func (c Condition) RowLevel() bool {
	return c.Row != nil
}
