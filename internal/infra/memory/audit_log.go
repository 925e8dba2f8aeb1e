package memory

import (
	"context"
	"sync"

	"quiz-arena/internal/app"
)

// AuditLog keeps token issuance records in process.
type AuditLog struct {
	mu      sync.Mutex
	records []app.TokenRecord
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) RecordToken(_ context.Context, record app.TokenRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Records returns a copy of what has been recorded.
func (l *AuditLog) Records() []app.TokenRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]app.TokenRecord(nil), l.records...)
}
