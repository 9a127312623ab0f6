package domain

import "time"

type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Import is the batch header for one submission. It is created at staging
// time with status processing and finalized exactly once when every staged
// contact has reached a terminal state.
type Import struct {
	ID             string       `json:"id"`
	CompanyID      string       `json:"company_id"`
	FileName       string       `json:"file_name"`
	FileType       string       `json:"file_type"`
	TotalRecords   int          `json:"total_records"`
	ValidRecords   int          `json:"valid_records"`
	InvalidRecords int          `json:"invalid_records"`
	Status         ImportStatus `json:"status"`
	ErrorLog       []RowError   `json:"error_log,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// RowError is one entry of the per-import failure ledger.
type RowError struct {
	ContactID string `json:"id"`
	Message   string `json:"error"`
}

type ContactStatus string

const (
	ContactStatusPending   ContactStatus = "pending"
	ContactStatusProcessed ContactStatus = "processed"
	ContactStatusFailed    ContactStatus = "failed"
)

// Contact is one staged row. RawData holds the submitted row verbatim,
// unknown columns included. A contact leaves pending exactly once.
type Contact struct {
	ID           string         `json:"id"`
	CompanyID    string         `json:"company_id"`
	ImportID     string         `json:"import_id"`
	RawData      map[string]any `json:"raw_data"`
	Status       ContactStatus  `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}
