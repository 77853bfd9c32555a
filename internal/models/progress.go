package models

import (
	"math"
	"time"
)

// Progress is a point-in-time snapshot of a resolution run.
// Counts cover the whole set of unique postal codes, including codes that
// were already cached before the run started.
type Progress struct {
	CompletedCount int     `json:"completedCount"`
	TotalCount     int     `json:"totalCount"`
	SuccessCount   int     `json:"successCount"`
	FailureCount   int     `json:"failureCount"`
	Timestamp      string  `json:"timestamp"`  // RFC 3339, UTC
	Percentage     float64 `json:"percentage"` // two decimal places
}

// NewProgress builds a snapshot stamped with the given time.
func NewProgress(completed, total, success, failure int, now time.Time) Progress {
	const hundred = 100.0

	percentage := hundred
	if total > 0 {
		percentage = math.Round(float64(completed)/float64(total)*hundred*hundred) / hundred
	}

	return Progress{
		CompletedCount: completed,
		TotalCount:     total,
		SuccessCount:   success,
		FailureCount:   failure,
		Timestamp:      now.UTC().Format(time.RFC3339),
		Percentage:     percentage,
	}
}
