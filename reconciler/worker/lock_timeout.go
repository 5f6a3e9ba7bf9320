package worker

import (
	"context"
	"time"

	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/repository"
)

// LockTimeoutWorker is the consistency sweep. It force-releases locks older
// than the cutoff (gateways that crashed between start_* and complete_*),
// then promotes pending logical objects and buckets whose children are all
// ready, which closes the fan-out gap where only the primary completion
// promotes.
type LockTimeoutWorker struct {
	infra      *infra.Infra
	repository *repository.Repository
	timeout    time.Duration
	interval   time.Duration
}

func NewLockTimeoutWorker(infra *infra.Infra, repo *repository.Repository, timeout, interval time.Duration) *LockTimeoutWorker {
	return &LockTimeoutWorker{
		infra:      infra,
		repository: repo,
		timeout:    timeout,
		interval:   interval,
	}
}

func (w *LockTimeoutWorker) Start(ctx context.Context) {
	w.infra.Logger.InfoWithContextf(ctx, "[Lock Timeout Worker] Started with timeout=%s interval=%s", w.timeout, w.interval)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.infra.Logger.InfoWithContextf(ctx, "[Lock Timeout Worker] Shutting down...")
				return
			case <-ticker.C:
				w.Sweep(ctx, time.Now().UTC())
			}
		}
	}()
}

// Sweep runs one pass at the given time. Split out so tests can drive it
// without the ticker.
func (w *LockTimeoutWorker) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.timeout)

	released, err := w.repository.PhysicalObjectRepo.TimeoutStaleLocks(cutoff)
	if err != nil {
		w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to release stale object locks: %v", err)
		return
	}
	bucketReleased, err := w.repository.BucketRepo.TimeoutStaleLocks(cutoff)
	if err != nil {
		w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to release stale bucket locks: %v", err)
		return
	}
	if released > 0 || bucketReleased > 0 {
		w.infra.Logger.WarningWithContextf(ctx, "[Lock Timeout Worker] Released %d object and %d bucket locks past %s", released, bucketReleased, w.timeout)
	}

	w.promoteObjects(ctx)
	w.promoteBuckets(ctx)
}

func (w *LockTimeoutWorker) promoteObjects(ctx context.Context) {
	pending, err := w.repository.LogicalObjectRepo.FindPending()
	if err != nil {
		w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to list pending logical objects: %v", err)
		return
	}

	for _, object := range pending {
		if !allLocatorsReady(object.PhysicalObjectLocators) {
			continue
		}
		if err := w.repository.LogicalObjectRepo.UpdateStatus(object.ID, entity.StatusReady); err != nil {
			w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to promote logical object id=%d: %v", object.ID, err)
			continue
		}
		w.infra.Logger.InfoWithContextf(ctx, "[Lock Timeout Worker] Promoted logical object id=%d (%s/%s)", object.ID, object.Bucket, object.Key)
	}
}

func (w *LockTimeoutWorker) promoteBuckets(ctx context.Context) {
	pending, err := w.repository.BucketRepo.FindPending()
	if err != nil {
		w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to list pending buckets: %v", err)
		return
	}

	for _, bucket := range pending {
		ready := len(bucket.PhysicalBucketLocators) > 0
		for _, locator := range bucket.PhysicalBucketLocators {
			if locator.Status != entity.StatusReady {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if err := w.repository.BucketRepo.UpdateStatus(bucket.ID, entity.StatusReady); err != nil {
			w.infra.Logger.ErrorWithContextf(ctx, err, "[Lock Timeout Worker] Failed to promote bucket id=%d: %v", bucket.ID, err)
			continue
		}
		w.infra.Logger.InfoWithContextf(ctx, "[Lock Timeout Worker] Promoted bucket %s", bucket.Bucket)
	}
}

// allLocatorsReady requires a non-empty, fully ready child set.
func allLocatorsReady(locators []entity.PhysicalObjectLocator) bool {
	if len(locators) == 0 {
		return false
	}
	for _, locator := range locators {
		if locator.Status != entity.StatusReady {
			return false
		}
	}
	return true
}
