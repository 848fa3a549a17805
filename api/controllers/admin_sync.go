package controllers

import (
	"context"
	"net/http"

	"github.com/yln-platform/mentorship-backend/api/responses"
	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

type syncStore interface {
	DrainPendingWrites(ctx context.Context) (dualwrite.DrainResult, error)
	QueueStats(ctx context.Context) (dualwrite.QueueStats, error)
}

type backfiller interface {
	Backfill(ctx context.Context) (int, error)
}

// SyncQueueStats reports the mirror write backlog. Admin only.
func SyncQueueStats(store syncStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.QueueStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// SyncDrain runs one drain pass on demand. The periodic worker does the
// same thing; this endpoint exists so an operator does not have to wait
// for the next tick.
func SyncDrain(store syncStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := store.DrainPendingWrites(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"skipped":     result.Skipped,
			"claimed":     result.Claimed,
			"succeeded":   result.Succeeded,
			"rescheduled": result.Rescheduled,
			"failed":      result.Failed,
		})
	}
}

// SyncBackfill requeues failed writes and pushes every local row to the
// mirror. Admin only.
func SyncBackfill(svc backfiller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pushed, err := svc.Backfill(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"pushed": pushed})
	}
}
