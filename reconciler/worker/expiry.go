package worker

import (
	"context"
	"time"

	"github.com/tnqbao/gau-store-server/engine"
	"github.com/tnqbao/gau-store-server/infra"
)

// ExpiryWorker evicts physical copies whose TTL ran out. The actual byte
// deletion is the gateways' job; they learn about it from the expired queue
// the engine publishes to.
type ExpiryWorker struct {
	infra    *infra.Infra
	engine   *engine.Engine
	interval time.Duration
}

func NewExpiryWorker(infra *infra.Infra, eng *engine.Engine, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		infra:    infra,
		engine:   eng,
		interval: interval,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.infra.Logger.InfoWithContextf(ctx, "[Expiry Worker] Started with interval=%s", w.interval)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.infra.Logger.InfoWithContextf(ctx, "[Expiry Worker] Shutting down...")
				return
			case <-ticker.C:
				w.Sweep(ctx, time.Now().UTC())
			}
		}
	}()
}

func (w *ExpiryWorker) Sweep(ctx context.Context, now time.Time) {
	resp, err := w.engine.CleanObjects(ctx, now)
	if err != nil {
		w.infra.Logger.ErrorWithContextf(ctx, err, "[Expiry Worker] Cleanup pass failed: %v", err)
		return
	}
	if len(resp.Locators) > 0 {
		w.infra.Logger.InfoWithContextf(ctx, "[Expiry Worker] Evicted %d expired locators", len(resp.Locators))
	}
}
