// Package utils provides small shared helpers: hashing for idempotency keys,
// retry with backoff and pagination.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SHA256Hash returns the hex-encoded SHA-256 of data.
func SHA256Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Retry calls fn up to maxAttempts times with a fixed delay between attempts.
func Retry(maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < maxAttempts-1 {
			time.Sleep(delay)
		}
	}
	return lastErr
}

// RetryWithBackoff calls fn with exponential backoff capped at maxDelay.
func RetryWithBackoff(maxAttempts int, initialDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < maxAttempts-1 {
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * 1.5)
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
	return lastErr
}

// Pagination carries page/limit parameters for list queries.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// NewPagination normalizes page parameters and computes page count.
func NewPagination(page, pageSize int, total int64) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)

	return &Pagination{Page: page, PageSize: pageSize, Total: total, Pages: pages}
}

// Offset returns the query offset for the page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the query limit for the page.
func (p *Pagination) Limit() int {
	return p.PageSize
}
