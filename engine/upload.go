package engine

import (
	"context"
	"time"

	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/schema"
)

// StartUpload resolves where a gateway should write a new object (or
// version, or copy), staging pending locator rows for every target region.
// Three shapes of operation share this path: first write, pull-on-read
// (policy always_store reusing an existing object) and copy.
func (e *Engine) StartUpload(ctx context.Context, req *schema.StartUploadRequest) (*schema.StartUploadResponse, error) {
	putPolicy, err := e.policies.PutPolicy(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to resolve placement policy: %v", err)
	}

	setTTL := putPolicy.GetTTL("", "")
	if req.TTL != nil {
		setTTL = *req.TTL
	}

	var resp *schema.StartUploadResponse
	err = e.transaction(func(r *repository.Repository) error {
		bucket, err := r.BucketRepo.FindByName(req.Bucket)
		if err != nil {
			return apperr.Internal("failed to load bucket: %v", err)
		}
		if bucket == nil {
			return apperr.NotFound("Bucket Not Found")
		}

		enabled := bucket.VersionEnabled
		if !versionEnabled(enabled) {
			// Serialize concurrent writers against the unversioned
			// namespace; prevents duplicate primaries for one key.
			if err := r.LockLogicalObjectsExclusive(); err != nil {
				return apperr.Internal("failed to lock logical objects: %v", err)
			}
			if versionNever(enabled) && req.VersionID != nil {
				return apperr.BadRequest("Versioning is NULL, make sure you enable versioning first")
			}
		}

		existing, err := r.LogicalObjectRepo.FindLatestWithLocators(
			req.Bucket, req.Key,
			[]entity.Status{entity.StatusReady, entity.StatusPending},
			req.VersionID,
		)
		if err != nil {
			return apperr.Internal("failed to query logical object: %v", err)
		}

		// Copy and pull-on-read need the requested source version to exist.
		if req.VersionID != nil && existing == nil &&
			(req.CopySrcBucket != nil || putPolicy.Name() == "always_store") {
			return apperr.NotFound("Object of version %d Not Found", *req.VersionID)
		}

		primaryExists := false
		existingTags := map[string]uint{}
		var logicalObject *entity.LogicalObject

		if existing != nil {
			objectAlreadyExists := false
			for _, locator := range existing.PhysicalObjectLocators {
				if locator.LocationTag == req.ClientFromRegion {
					objectAlreadyExists = true
				}
				existingTags[locator.LocationTag] = locator.ID
				if locator.IsPrimary {
					primaryExists = true
				}
			}

			if objectAlreadyExists && !versionEnabled(enabled) {
				e.logger.ErrorWithContextf(ctx, nil, "[Engine] Duplicate unversioned write: bucket=%s key=%s region=%s", req.Bucket, req.Key, req.ClientFromRegion)
				return apperr.Conflict("Conflict, object already exists")
			}

			// Suspended versioning (and never-versioned buckets, and
			// pull-on-read) overwrite the existing row in place instead
			// of growing the version history.
			if putPolicy.Name() == "always_store" || versionNever(enabled) || existing.VersionSuspended {
				logicalObject = existing
				logicalObject.DeleteMarker = false
			} else {
				logicalObject = newLogicalObject(existing, req, !versionEnabled(enabled), false)
			}
		} else {
			logicalObject = newLogicalObject(nil, req, !versionEnabled(enabled), false)
		}

		uploadToRegionTags := putPolicy.Place(req)

		// Elect the primary write region; branches are mutually
		// exclusive and ordered by priority.
		var primaryWriteRegion string
		switch {
		case primaryExists && putPolicy.Name() == "always_store":
			for _, locator := range existing.PhysicalObjectLocators {
				if locator.IsPrimary {
					primaryWriteRegion = locator.LocationTag
					break
				}
			}
		case putPolicy.Name() == "replicate_all":
			var primaries []string
			for _, pbl := range bucket.PhysicalBucketLocators {
				if pbl.IsPrimary {
					primaries = append(primaries, pbl.LocationTag)
				}
			}
			if len(primaries) != 1 {
				return apperr.Internal("bucket %s must have exactly one primary region, found %d", req.Bucket, len(primaries))
			}
			primaryWriteRegion = primaries[0]
		case putPolicy.Name() == "single_region":
			primaryWriteRegion = uploadToRegionTags[0]
		default:
			primaryWriteRegion = req.ClientFromRegion
		}
		logicalObject.BaseRegion = primaryWriteRegion

		// Copy: restrict targets to regions where the source is ready.
		var copySrcBuckets, copySrcKeys []string
		if req.CopySrcBucket != nil && req.CopySrcKey != nil {
			copySrc, err := r.LogicalObjectRepo.FindLatestWithLocators(
				*req.CopySrcBucket, *req.CopySrcKey,
				[]entity.Status{entity.StatusReady},
				req.VersionID,
			)
			if err != nil {
				return apperr.Internal("failed to query copy source: %v", err)
			}
			if copySrc == nil || (copySrc.DeleteMarker && req.VersionID == nil) {
				return apperr.NotFound("Object Not Found")
			}
			if copySrc.DeleteMarker && req.VersionID != nil {
				return apperr.BadRequest("Not allowed to copy from a delete marker")
			}

			srcLocations := map[string]bool{}
			for _, locator := range copySrc.PhysicalObjectLocators {
				srcLocations[locator.LocationTag] = true
				copySrcBuckets = append(copySrcBuckets, locator.Bucket)
				copySrcKeys = append(copySrcKeys, locator.Key)
			}

			var matched []string
			for _, tag := range uploadToRegionTags {
				if srcLocations[tag] {
					matched = append(matched, tag)
				}
			}
			if len(matched) == 0 {
				for _, locator := range copySrc.PhysicalObjectLocators {
					matched = append(matched, locator.LocationTag)
				}
			}
			uploadToRegionTags = matched
		}

		if logicalObject.ID == 0 {
			if err := r.LogicalObjectRepo.Create(logicalObject); err != nil {
				return apperr.Internal("failed to create logical object: %v", err)
			}
		} else {
			if err := r.LogicalObjectRepo.Save(logicalObject); err != nil {
				return apperr.Internal("failed to update logical object: %v", err)
			}
		}

		now := time.Now().UTC()
		var created, overwritten []entity.PhysicalObjectLocator
		for _, regionTag := range uploadToRegionTags {
			// A never-versioned bucket has no history to grow: regions
			// that already hold a copy get nothing new.
			if _, covered := existingTags[regionTag]; covered && versionNever(enabled) {
				continue
			}

			var bucketLocator *entity.PhysicalBucketLocator
			for i := range bucket.PhysicalBucketLocators {
				if bucket.PhysicalBucketLocators[i].LocationTag == regionTag {
					bucketLocator = &bucket.PhysicalBucketLocators[i]
					break
				}
			}
			if bucketLocator == nil {
				e.logger.ErrorWithContextf(ctx, nil, "[Engine] No physical bucket locator for region tag: %s", regionTag)
				return apperr.Internal("No physical bucket locator found for upload region tag %s", regionTag)
			}

			locator := entity.PhysicalObjectLocator{
				LogicalObjectID:   logicalObject.ID,
				LocationTag:       regionTag,
				Cloud:             bucketLocator.Cloud,
				Region:            bucketLocator.Region,
				Bucket:            bucketLocator.Bucket,
				Key:               bucketLocator.Prefix + req.Key,
				Status:            entity.StatusPending,
				IsPrimary:         regionTag == primaryWriteRegion,
				LockAcquiredTs:    &now,
				TTL:               setTTL,
				MultipartUploadID: logicalObject.MultipartUploadID,
			}

			existingID, covered := existingTags[regionTag]
			if !covered || versionEnabled(enabled) || (existing != nil && !existing.VersionSuspended) {
				created = append(created, locator)
			} else {
				// Suspended versioning reuses the row: same id, reset
				// to pending for the overwrite in flight.
				locator.ID = existingID
				overwritten = append(overwritten, locator)
			}
		}

		if err := r.PhysicalObjectRepo.CreateAll(created); err != nil {
			return apperr.Internal("failed to create physical locators: %v", err)
		}
		for i := range overwritten {
			if err := r.PhysicalObjectRepo.Save(&overwritten[i]); err != nil {
				return apperr.Internal("failed to overwrite physical locator: %v", err)
			}
		}

		locators := make([]schema.LocateObjectResponse, 0, len(created)+len(overwritten))
		for _, locator := range append(created, overwritten...) {
			locators = append(locators, schema.LocateObjectResponse{
				ID:        locator.ID,
				Tag:       locator.LocationTag,
				Cloud:     locator.Cloud,
				Bucket:    locator.Bucket,
				Region:    locator.Region,
				Key:       locator.Key,
				VersionID: locator.VersionID,
				Version:   logicalVersion(logicalObject.ID, enabled),
			})
		}

		resp = &schema.StartUploadResponse{
			MultipartUploadID: logicalObject.MultipartUploadID,
			Locators:          locators,
			CopySrcBuckets:    copySrcBuckets,
			CopySrcKeys:       copySrcKeys,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoWithContextf(ctx, "[Engine] start_upload: bucket=%s key=%s region=%s locators=%d", req.Bucket, req.Key, req.ClientFromRegion, len(resp.Locators))
	return resp, nil
}

// CompleteUpload flips one locator to ready and, for single-copy
// authoritative policies (or the primary of a fan-out), promotes the owning
// logical object. A locator that is already ready with its lock cleared is
// a duplicate completion and no-ops: the first call's metadata wins.
func (e *Engine) CompleteUpload(ctx context.Context, req *schema.CompleteUploadRequest) error {
	putPolicy, err := e.policies.PutPolicy(ctx)
	if err != nil {
		return apperr.Internal("failed to resolve placement policy: %v", err)
	}

	return e.transaction(func(r *repository.Repository) error {
		locator, err := r.PhysicalObjectRepo.FindByID(req.ID)
		if err != nil {
			return apperr.Internal("failed to load physical locator: %v", err)
		}
		if locator == nil {
			e.logger.ErrorWithContextf(ctx, nil, "[Engine] complete_upload: physical locator not found: id=%d", req.ID)
			return apperr.NotFound("Not Found")
		}

		if locator.Status == entity.StatusReady && locator.LockAcquiredTs == nil {
			e.logger.WarningWithContextf(ctx, "[Engine] complete_upload: duplicate completion for locator id=%d ignored", req.ID)
			return nil
		}

		lastModified := req.LastModified.UTC()
		locator.Status = entity.StatusReady
		locator.LockAcquiredTs = nil
		locator.VersionID = req.VersionID
		locator.StorageStartTime = &lastModified
		if req.TTL != nil {
			locator.TTL = *req.TTL
		}
		if err := r.PhysicalObjectRepo.Save(locator); err != nil {
			return apperr.Internal("failed to update physical locator: %v", err)
		}

		policyName := putPolicy.Name()
		promote := (policyName == "replicate_all" && locator.IsPrimary) ||
			policyName == "always_store" ||
			policyName == "always_evict" ||
			policyName == "single_region" ||
			policyName == "fixed_ttl" ||
			policyName == "t_even"
		if !promote {
			// Fan-out replicas converge through the reconciler once
			// every sibling is ready.
			return nil
		}

		logicalObject := locator.LogicalObject
		logicalObject.Status = entity.StatusReady
		logicalObject.Size = &req.Size
		logicalObject.ETag = &req.ETag
		logicalObject.LastModified = &lastModified
		if err := r.LogicalObjectRepo.Save(logicalObject); err != nil {
			return apperr.Internal("failed to promote logical object: %v", err)
		}
		return nil
	})
}
