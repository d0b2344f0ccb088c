package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/tay-dev-lab/voice-to-invoice/internal/store"
)

const ttlWorkerInterval = 15 * time.Minute

// StartTTLWorker runs a background goroutine that periodically sweeps
// expired sessions out of the store. Reads already treat expired rows
// as absent; the sweep keeps abandoned sessions from accumulating.
func StartTTLWorker(ctx context.Context, repo store.Repository) {
	ticker := time.NewTicker(ttlWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", ttlWorkerInterval)

		for {
			select {
			case <-ticker.C:
				deleted, err := repo.CleanupExpiredSessions(ctx)
				if err != nil {
					slog.Error("TTL worker failed to cleanup expired sessions", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("TTL worker cleaned up expired sessions", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
