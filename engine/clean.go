package engine

import (
	"context"
	"time"

	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/infra/produce"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/schema"
)

// CleanObjects removes every physical locator whose TTL ran out at the given
// timestamp and returns them so the caller can remove the bytes. Logical
// objects are untouched: an evicted copy can be re-materialized by a
// pull-on-read as long as another copy survives.
func (e *Engine) CleanObjects(ctx context.Context, timestamp time.Time) (*schema.CleanObjectResponse, error) {
	resp := &schema.CleanObjectResponse{Locators: []schema.LocateObjectResponse{}}

	err := e.transaction(func(r *repository.Repository) error {
		expired, err := r.PhysicalObjectRepo.FindExpired(timestamp.UTC())
		if err != nil {
			return apperr.Internal("failed to query expired locators: %v", err)
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(expired))
		for _, locator := range expired {
			ids = append(ids, locator.ID)
			logicalID := locator.LogicalObjectID
			resp.Locators = append(resp.Locators, schema.LocateObjectResponse{
				ID:      locator.ID,
				Tag:     locator.LocationTag,
				Cloud:   locator.Cloud,
				Bucket:  locator.Bucket,
				Region:  locator.Region,
				Key:     locator.Key,
				Version: &logicalID,
			})
		}
		if err := r.PhysicalObjectRepo.DeleteByIDs(ids); err != nil {
			return apperr.Internal("failed to delete expired locators: %v", err)
		}

		if e.produce != nil {
			// Broker failures only cost the notification, never the
			// cleanup itself.
			for _, locator := range expired {
				msg := produce.ExpiredLocatorMessage{
					LocatorID:   locator.ID,
					LocationTag: locator.LocationTag,
					Cloud:       locator.Cloud,
					Region:      locator.Region,
					Bucket:      locator.Bucket,
					Key:         locator.Key,
				}
				if locator.VersionID != nil {
					msg.VersionID = *locator.VersionID
				}
				if err := e.produce.ObjectService.PublishObjectExpired(ctx, msg); err != nil {
					e.logger.ErrorWithContextf(ctx, err, "[Engine] failed to publish eviction for locator id=%d", locator.ID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Locators) > 0 {
		e.logger.InfoWithContextf(ctx, "[Engine] clean_objects: evicted=%d", len(resp.Locators))
	}
	return resp, nil
}
