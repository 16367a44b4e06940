package domain

import (
	"encoding/base64"
	"strconv"
)

// List paging bounds for metadata listings.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// PageRequest selects one page of a metadata listing. PageToken is the
// opaque cursor returned as the previous page's next token.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Offset is the row offset encoded in PageToken. Malformed and negative
// tokens restart from the first row.
func (p PageRequest) Offset() int {
	n, ok := decodeOffset(p.PageToken)
	if !ok {
		return 0
	}
	return n
}

// Limit is MaxResults clamped to [1, MaxMaxResults], defaulting to
// DefaultMaxResults.
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	default:
		return p.MaxResults
	}
}

// NextPageToken returns the cursor following a page that started at offset
// and held limit rows, or "" when total rows are exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if next <= 0 || int64(next) >= total {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(next)))
}

func decodeOffset(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// TotalPages returns how many pageSize pages hold total rows.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
