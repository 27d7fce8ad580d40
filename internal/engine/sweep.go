package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
	"github.com/donaldgifford/mailin-buyback/internal/store"
)

// SweepReturned deletes returned requests whose returned_at is older than the
// retention window measured from now. It returns the number deleted.
func (eng *Engine) SweepReturned(ctx context.Context, now time.Time) (deleted int, err error) {
	ctx, span := eng.startSpan(ctx, "SweepReturned", "")
	defer func() { endSpan(span, err) }()

	cutoff := now.Add(-eng.retention)
	defer func() {
		metrics.SweepLastRunTimestamp.Set(float64(now.Unix()))
		metrics.SweepDeletedTotal.Add(float64(deleted))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		ids, err := eng.store.ListReturnedBefore(ctx, cutoff, eng.sweepBatch)
		if err != nil {
			return deleted, fmt.Errorf("listing returned requests: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			err := eng.store.DeleteRequest(ctx, id)
			switch {
			case err == nil:
				deleted++
			case errors.Is(err, store.ErrNotFound):
				// Deleted by someone else since the listing.
			default:
				return deleted, fmt.Errorf("deleting request %s: %w", id, err)
			}
		}

		if len(ids) < eng.sweepBatch {
			break
		}
	}

	eng.log.Info("returned request sweep complete",
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return deleted, nil
}
