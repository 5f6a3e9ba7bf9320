package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tnqbao/gau-store-server/entity"
)

// EnsureDefaultBucket seeds the logical bucket the gateways address, with
// one physical bucket locator per init region. Bucket provisioning itself
// happens outside this service; the seed only mirrors what the deployment
// already created. Idempotent across restarts. The first init region is the
// primary write region for fan-out placement.
func (e *Engine) EnsureDefaultBucket(ctx context.Context, name string, initRegions []string) error {
	existing, err := e.repo.BucketRepo.FindByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up default bucket: %w", err)
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	bucket := &entity.LogicalBucket{
		Bucket:       name,
		Prefix:       "",
		Status:       entity.StatusReady,
		CreationDate: &now,
	}
	if err := e.repo.BucketRepo.Create(bucket); err != nil {
		return fmt.Errorf("failed to create default bucket: %w", err)
	}

	for i, tag := range initRegions {
		cloud, region, ok := strings.Cut(tag, ":")
		if !ok {
			return fmt.Errorf("invalid region tag %q, want cloud:region", tag)
		}
		locator := entity.PhysicalBucketLocator{
			LogicalBucketID: bucket.ID,
			LocationTag:     tag,
			Cloud:           cloud,
			Region:          region,
			Bucket:          fmt.Sprintf("%s-%s-%s", name, cloud, region),
			Prefix:          "",
			Status:          entity.StatusReady,
			IsPrimary:       i == 0,
			NeedWarmup:      false,
		}
		if err := e.repo.BucketRepo.CreateLocator(&locator); err != nil {
			return fmt.Errorf("failed to create bucket locator for %s: %w", tag, err)
		}
	}

	e.logger.InfoWithContextf(ctx, "[Engine] registered default bucket %s across %d regions", name, len(initRegions))
	return nil
}
