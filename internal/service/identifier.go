package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
)

// Sequence describes an externally visible sequential identifier such as
// P000042 or B000317.
type Sequence struct {
	Kind   string
	Prefix string
	Width  int
}

var (
	PatientSequence = Sequence{Kind: "patient", Prefix: "P", Width: 6}
	BillSequence    = Sequence{Kind: "bill", Prefix: "B", Width: 6}
)

func (s Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

// NextIdentifier returns the first identifier after count that exists
// reports as free. The answer is only a candidate: two callers can pick the
// same one, so the insert that uses it must run under retryOnConflict.
func NextIdentifier(ctx context.Context, seq Sequence, count int64, exists func(context.Context, string) (bool, error)) (string, error) {
	for n := count + 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := seq.Format(n)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking %s identifier %s: %w", seq.Kind, candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// retryOnConflict re-runs fn, a whole generate-and-insert transaction, while
// it fails with store.ErrConflict.
func retryOnConflict(ctx context.Context, maxAttempts int, onConflict func(attempt int), fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		if onConflict != nil {
			onConflict(attempt)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("allocating identifier after %d attempts: %w", maxAttempts, err)
}
