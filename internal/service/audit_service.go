package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"go.uber.org/zap"
)

// AuditService persists audit entries off the request path. Entries are
// written after the use case has committed; a full buffer drops the entry
// rather than blocking the caller.
type AuditService struct {
	repo    store.AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.AuditLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

const auditBufferSize = 10_000

func NewAuditService(repo store.AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditBufferSize)
}

func newAuditService(repo store.AuditRepository, m *metrics.Collector, log *zap.Logger, size int) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log,
		metrics: m,
		entries: make(chan *domain.AuditLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.Actor.UserID,
		UserRole:     entry.Actor.Role,
		IPAddress:    entry.Actor.IP,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Changes:      entry.Changes,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit service stopped, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID),
		)
		return
	}

	select {
	case s.entries <- al:
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID),
		)
	}
}

// Shutdown stops accepting entries and waits for the backlog to drain. It is
// safe to call more than once; entries logged afterwards are dropped.
func (s *AuditService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()
	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
