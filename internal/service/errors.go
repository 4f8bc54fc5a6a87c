package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"go.uber.org/zap"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// ValidationError collects field problems found before any rule runs.
// It classifies as domain.ErrInvalidInput.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidInput
}

// AuditEntry is what a use case hands to AuditService.LogAsync.
type AuditEntry struct {
	Actor        domain.Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string
}

// isRuleViolation reports whether err is one of the domain error kinds, as
// opposed to an infrastructure failure.
func isRuleViolation(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidReference) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, ErrForbidden)
}

// logFailure logs infrastructure errors only; rule violations are reported
// to the caller and not logged.
func logFailure(log *zap.Logger, msg string, err error) {
	if isRuleViolation(err) {
		return
	}
	log.Error(msg, zap.Error(err))
}

func collisionHook(m *metrics.Collector, log *zap.Logger, seq Sequence) func(int) {
	return func(attempt int) {
		m.IdentifierCollisions.WithLabelValues(seq.Kind).Inc()
		log.Warn("identifier collision, retrying",
			zap.String("kind", seq.Kind),
			zap.Int("attempt", attempt),
		)
	}
}
