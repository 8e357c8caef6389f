package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionStatus marks the outcome of a single roster row.
type IngestionStatus string

const (
	IngestionStatusOK     IngestionStatus = "OK"
	IngestionStatusFailed IngestionStatus = "FAILED"
)

// IngestionLogEntry captures row level outcomes of a member roster upload.
type IngestionLogEntry struct {
	ID           int64           `json:"id"`
	FundID       uuid.UUID       `json:"fund_id"`
	FileName     string          `json:"file_name"`
	RowNumber    int             `json:"row_number"`
	Status       IngestionStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
