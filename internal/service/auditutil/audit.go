// Package auditutil records best-effort execution audit entries.
package auditutil

import (
	"context"
	"log/slog"
	"time"

	"graphable/internal/domain"
)

// Audit statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Recorder writes audit entries. A failed write is logged and never
// returned to the caller.
type Recorder struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A nil repo disables auditing.
func NewRecorder(repo domain.AuditRepository, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Recorder{repo: repo, logger: logger}
}

// Record stores one entry for an operation that started at start.
func (r Recorder) Record(ctx context.Context, action, workspaceID, target string, start time.Time, rows int, err error) {
	if r.repo == nil {
		return
	}
	principal := "anonymous"
	if p, ok := domain.PrincipalFromContext(ctx); ok && p.Name != "" {
		principal = p.Name
	}
	duration := time.Since(start).Milliseconds()
	entry := &domain.AuditEntry{
		PrincipalName: principal,
		WorkspaceID:   workspaceID,
		Action:        action,
		Target:        target,
		Status:        StatusSuccess,
		DurationMs:    &duration,
	}
	if err != nil {
		msg := err.Error()
		entry.Status = StatusError
		entry.ErrorMessage = &msg
	} else {
		n := int64(rows)
		entry.RowsReturned = &n
	}
	if insertErr := r.repo.Insert(context.WithoutCancel(ctx), entry); insertErr != nil {
		r.logger.Warn("audit write failed", "action", action, "error", insertErr)
	}
}
