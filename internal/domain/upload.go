package domain

import "time"

// SubmissionStatus is the lifecycle state of an upload.
type SubmissionStatus string

const (
	StatusProcessing SubmissionStatus = "Processing"
	StatusDraft      SubmissionStatus = "Draft"
	StatusError      SubmissionStatus = "Error"
	StatusSubmitted  SubmissionStatus = "Submitted"
	StatusPending    SubmissionStatus = "Pending"
	StatusApproved   SubmissionStatus = "Approved"
	StatusRejected   SubmissionStatus = "Rejected"
)

// statusTransitions is the full lifecycle graph. The ingestion core only
// performs Processing→Draft and Processing→Error; the remaining edges belong
// to the external approval workflow but are guarded here so no caller can
// move a status backward through this package.
var statusTransitions = map[SubmissionStatus][]SubmissionStatus{
	StatusProcessing: {StatusDraft, StatusError},
	StatusDraft:      {StatusSubmitted},
	StatusError:      {StatusProcessing},
	StatusSubmitted:  {StatusPending, StatusApproved, StatusRejected},
	StatusPending:    {StatusApproved, StatusRejected},
	StatusRejected:   {StatusDraft},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Upload is the metadata record for one submitted file.
type Upload struct {
	UploadID               string
	ModuleID               int
	OrganizationID         string
	OrganizationName       string
	ParentOrganizationID   *string
	ParentOrganizationName *string
	Quarter                int
	Year                   int
	Status                 SubmissionStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ReportingPeriodStart resolves the first day of the upload's reporting
// window from its quarter and year.
func (u Upload) ReportingPeriodStart() time.Time {
	month := time.Month((u.Quarter-1)*3 + 1)
	if u.Quarter < 1 || u.Quarter > 4 {
		month = time.January
	}
	return time.Date(u.Year, month, 1, 0, 0, 0, 0, time.UTC)
}
