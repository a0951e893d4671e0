package budgetv1

import (
	"path/filepath"
	"strings"
)

// Upload statuses.
const (
	UploadStatusExtracted        = "extracted"
	UploadStatusPasswordRequired = "password_required"
)

// MaxUploadBytes bounds the statement size accepted by UploadStatement.
const MaxUploadBytes = 10 << 20

var statementExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
	".pdf":  true,
}

// SupportedStatement reports whether filename has an extension the importer reads.
func SupportedStatement(filename string) bool {
	return statementExtensions[strings.ToLower(filepath.Ext(filename))]
}

type UploadStatementRequest struct {
	Filename      string `json:"filename"`
	Content       []byte `json:"content"`
	Password      string `json:"password,omitempty"`
	ClearPrevious bool   `json:"clear_previous,omitempty"`
}

func (r *UploadStatementRequest) Validate() error {
	if err := required("filename", r.Filename); err != nil {
		return err
	}
	if len(r.Content) == 0 {
		return invalid("content is empty")
	}
	if len(r.Content) > MaxUploadBytes {
		return invalid("content exceeds %d bytes", MaxUploadBytes)
	}
	return nil
}

// Transaction is a statement row with its suggested category.
type Transaction struct {
	Date              string   `json:"date"`
	Description       string   `json:"description"`
	Amount            string   `json:"amount"`
	Type              string   `json:"type"`
	SuggestedCategory string   `json:"suggested_category"`
	Confidence        string   `json:"confidence"`
	Reasoning         string   `json:"reasoning,omitempty"`
	Alternatives      []string `json:"alternatives,omitempty"`
	PaymentMethod     string   `json:"payment_method,omitempty"`
}

type SuggestedRange struct {
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

type DateRange struct {
	MinDate         string            `json:"min_date"`
	MaxDate         string            `json:"max_date"`
	TotalDays       int               `json:"total_days"`
	SuggestedRanges []*SuggestedRange `json:"suggested_ranges"`
}

type UploadStatementResponse struct {
	Status           string         `json:"status"`
	SessionID        string         `json:"session_id,omitempty"`
	FileType         string         `json:"file_type"`
	TransactionCount int            `json:"transaction_count"`
	DateRange        *DateRange     `json:"date_range,omitempty"`
	Preview          []*Transaction `json:"preview,omitempty"`
	Message          string         `json:"message"`
}

type SelectDateRangeRequest struct {
	SessionID string `json:"session_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (r *SelectDateRangeRequest) Validate() error {
	if err := required("session_id", r.SessionID); err != nil {
		return err
	}
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return err
	}
	if start.After(end) {
		return invalid("start_date %s is after end_date %s", r.StartDate, r.EndDate)
	}
	return nil
}

type AmbiguousItem struct {
	Index              int      `json:"index"`
	Description        string   `json:"description"`
	Amount             string   `json:"amount"`
	Date               string   `json:"date"`
	SuggestedCategory  string   `json:"suggested_category"`
	Confidence         string   `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	Alternatives       []string `json:"alternatives,omitempty"`
	TransactionCount   int      `json:"transaction_count"`
	NormalizedMerchant string   `json:"normalized_merchant"`
}

type SelectDateRangeResponse struct {
	NeedsClarification bool             `json:"needs_clarification"`
	FilteredCount      int              `json:"filtered_count"`
	AmbiguousCount     int              `json:"ambiguous_count"`
	ClearCount         int              `json:"clear_count"`
	AmbiguousItems     []*AmbiguousItem `json:"ambiguous_items"`
	Message            string           `json:"message"`
}

// ImportTransactionsRequest maps positions in the selected set to categories.
type ImportTransactionsRequest struct {
	SessionID      string         `json:"session_id"`
	Clarifications map[int]string `json:"clarifications,omitempty"`
}

func (r *ImportTransactionsRequest) Validate() error {
	if err := required("session_id", r.SessionID); err != nil {
		return err
	}
	for idx := range r.Clarifications {
		if idx < 0 {
			return invalid("clarification index %d is negative", idx)
		}
	}
	return nil
}

type LearnedRule struct {
	MerchantName string `json:"merchant_name"`
	Category     string `json:"category"`
	Confidence   int    `json:"confidence"`
}

type ImportTransactionsResponse struct {
	JobID    string         `json:"job_id,omitempty"`
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Total    int            `json:"total"`
	Message  string         `json:"message"`
	Learned  []*LearnedRule `json:"learned,omitempty"`
}

type CancelUploadRequest struct {
	SessionID string `json:"session_id"`
}

func (r *CancelUploadRequest) Validate() error { return required("session_id", r.SessionID) }

type CancelUploadResponse struct{}

type ListImportJobsRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (r *ListImportJobsRequest) Validate() error {
	if r.Limit < 0 {
		return invalid("limit must not be negative")
	}
	return nil
}

type ImportJob struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	Status       string `json:"status"`
	RowsTotal    int    `json:"rows_total"`
	RowsImported int    `json:"rows_imported"`
	RowsSkipped  int    `json:"rows_skipped"`
	ErrorMessage string `json:"error_message,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

type ListImportJobsResponse struct {
	Jobs []*ImportJob `json:"jobs"`
}
