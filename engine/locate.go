package engine

import (
	"context"
	"time"

	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/schema"
)

// LocateObject resolves a read to one ready physical copy, chosen by the
// active transfer policy. A local read also refreshes the copy's eviction
// clock so hot objects stay cached in the client's region.
func (e *Engine) LocateObject(ctx context.Context, req *schema.LocateObjectRequest) (*schema.LocateObjectResponse, error) {
	getPolicy, err := e.policies.GetPolicy(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to resolve transfer policy: %v", err)
	}
	putPolicy, err := e.policies.PutPolicy(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to resolve placement policy: %v", err)
	}

	var resp *schema.LocateObjectResponse
	err = e.transaction(func(r *repository.Repository) error {
		bucket, err := r.BucketRepo.FindByName(req.Bucket)
		if err != nil {
			return apperr.Internal("failed to load bucket: %v", err)
		}
		if bucket == nil {
			return apperr.NotFound("Bucket Not Found")
		}

		enabled := bucket.VersionEnabled
		if versionNever(enabled) && req.VersionID != nil {
			return apperr.BadRequest("Versioning is not enabled")
		}

		object, err := r.LogicalObjectRepo.FindReadyWithReadyLocator(req.Bucket, req.Key, req.VersionID)
		if err != nil {
			return apperr.Internal("failed to query logical object: %v", err)
		}
		if object == nil || (object.DeleteMarker && req.VersionID == nil) {
			return apperr.NotFound("Object Not Found")
		}
		if object.DeleteMarker && req.VersionID != nil {
			return apperr.MethodNotAllowed("Not allowed to get a delete marker")
		}

		chosen := getPolicy.Get(req, object.PhysicalObjectLocators)
		if chosen == nil {
			return apperr.NotFound("Object Not Found")
		}

		respTTL := putPolicy.GetTTL(chosen.LocationTag, req.ClientFromRegion)
		if req.TTL != nil {
			respTTL = *req.TTL
		}

		// A GET served from the client's own region restarts that copy's
		// storage clock. HEAD and other probes do not.
		if chosen.LocationTag == req.ClientFromRegion && (req.Op == "" || req.Op == "GET") {
			now := time.Now().UTC()
			chosen.StorageStartTime = &now
			if err := r.PhysicalObjectRepo.Save(chosen); err != nil {
				return apperr.Internal("failed to refresh storage start time: %v", err)
			}
		}

		resp = &schema.LocateObjectResponse{
			ID:           chosen.ID,
			Tag:          chosen.LocationTag,
			Cloud:        chosen.Cloud,
			Bucket:       chosen.Bucket,
			Region:       chosen.Region,
			Key:          chosen.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ETag:         object.ETag,
			VersionID:    physicalVersionID(chosen.VersionID, enabled),
			Version:      logicalVersion(object.ID, enabled),
			TTL:          &respTTL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoWithContextf(ctx, "[Engine] locate_object: bucket=%s key=%s client=%s chosen=%s", req.Bucket, req.Key, req.ClientFromRegion, resp.Tag)
	return resp, nil
}
