package telemetry

import (
	"context"
	"errors"

	"SignalFeed/internal/model"
)

// Sink receives run records.
type Sink interface {
	RecordRun(ctx context.Context, rec model.RunRecord) error
}

// Multi fans a run record out to every sink. Every sink is attempted; the
// failures are joined.
type Multi []Sink

// RecordRun implements Sink.
func (m Multi) RecordRun(ctx context.Context, rec model.RunRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.RecordRun(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
