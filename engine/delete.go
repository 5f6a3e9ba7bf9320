package engine

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/schema"
)

// StartDeleteObjects stages a batch delete. Per key the outcome is one of
// three ops the gateway must complete:
//
//	add     - versioning active: a new delete marker was staged, nothing
//	          is removed from the clouds
//	replace - versioning suspended: the latest version became the marker
//	          in place
//	delete  - the matched versions moved to pending_deletion and their
//	          physical copies must actually be removed
//
// Keys commit independently, so a failure partway leaves earlier keys
// staged; the caller retries the remainder.
func (e *Engine) StartDeleteObjects(ctx context.Context, req *schema.DeleteObjectsRequest) (*schema.DeleteObjectsResponse, error) {
	bucket, err := e.repo.BucketRepo.FindByName(req.Bucket)
	if err != nil {
		return nil, apperr.Internal("failed to load bucket: %v", err)
	}
	if bucket == nil {
		return nil, apperr.NotFound("Bucket Not Found")
	}
	enabled := bucket.VersionEnabled

	if versionNever(enabled) {
		for _, ids := range req.ObjectIdentifiers {
			if len(ids) > 0 {
				return nil, apperr.BadRequest("Versioning is not enabled")
			}
		}
	}
	if len(req.MultipartUploadIDs) > 0 && len(req.MultipartUploadIDs) != len(req.ObjectIdentifiers) {
		return nil, apperr.BadRequest("Number of multipart upload ids must match number of keys")
	}

	keys := make([]string, 0, len(req.ObjectIdentifiers))
	for key := range req.ObjectIdentifiers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resp := &schema.DeleteObjectsResponse{
		Locators:      map[string][]schema.LocateObjectResponse{},
		DeleteMarkers: map[string]schema.DeleteMarker{},
		OpType:        map[string]schema.OpType{},
	}

	for i, key := range keys {
		var multipartUploadID *string
		if len(req.MultipartUploadIDs) > 0 {
			multipartUploadID = &req.MultipartUploadIDs[i]
		}
		requestedIDs := req.ObjectIdentifiers[key]

		err := e.transaction(func(r *repository.Repository) error {
			if !versionEnabled(enabled) {
				if err := r.LockLogicalObjectsExclusive(); err != nil {
					return apperr.Internal("failed to lock logical objects: %v", err)
				}
			}

			versions, err := r.LogicalObjectRepo.FindVersionsForDelete(req.Bucket, key, multipartUploadID)
			if err != nil {
				return apperr.Internal("failed to query versions: %v", err)
			}
			if len(versions) == 0 {
				return apperr.NotFound("Objects not found")
			}
			versionSuspended := versions[0].VersionSuspended

			idWanted := map[uint]bool{}
			for _, id := range requestedIDs {
				idWanted[id] = true
			}

			addObj := false
			replaced := false
			now := time.Now().UTC()
			var last *entity.LogicalObject

			for idx := range versions {
				version := &versions[idx]

				if len(requestedIDs) == 0 && idx == 0 {
					switch {
					case versionEnabled(enabled):
						fallthrough
					case !versionNever(enabled) && !versionSuspended:
						// A simple delete under versioning never removes
						// data: it stages a marker on top of the stack.
						marker := newLogicalObject(version, nil, !versionEnabled(enabled), true)
						if err := r.LogicalObjectRepo.Create(marker); err != nil {
							return apperr.Internal("failed to create delete marker: %v", err)
						}
						mirrored := make([]entity.PhysicalObjectLocator, 0, len(version.PhysicalObjectLocators))
						for _, locator := range version.PhysicalObjectLocators {
							mirrored = append(mirrored, entity.PhysicalObjectLocator{
								LogicalObjectID: marker.ID,
								LocationTag:     locator.LocationTag,
								Cloud:           locator.Cloud,
								Region:          locator.Region,
								Bucket:          locator.Bucket,
								Key:             locator.Key,
								Status:          entity.StatusPending,
								IsPrimary:       locator.IsPrimary,
								LockAcquiredTs:  &now,
							})
						}
						if err := r.PhysicalObjectRepo.CreateAll(mirrored); err != nil {
							return apperr.Internal("failed to create delete marker locators: %v", err)
						}
						marker.PhysicalObjectLocators = mirrored
						version = marker
						addObj = true
					case !versionNever(enabled) && versionSuspended:
						// Suspended versioning: the null version becomes
						// the marker in place, nothing new is stacked.
						version.DeleteMarker = true
						if err := r.LogicalObjectRepo.Save(version); err != nil {
							return apperr.Internal("failed to mark delete marker: %v", err)
						}
						replaced = true
					}
				}

				if len(requestedIDs) > 0 && !idWanted[version.ID] {
					continue
				}

				for j := range version.PhysicalObjectLocators {
					locator := &version.PhysicalObjectLocators[j]
					if !addObj && !replaced {
						if locator.Status != entity.StatusReady && multipartUploadID == nil {
							return apperr.Conflict("Physical object is not ready")
						}
						locator.Status = entity.StatusPendingDeletion
						locator.LockAcquiredTs = &now
						if err := r.PhysicalObjectRepo.Save(locator); err != nil {
							return apperr.Internal("failed to stage locator deletion: %v", err)
						}
					}
					resp.Locators[key] = append(resp.Locators[key], schema.LocateObjectResponse{
						ID:                locator.ID,
						Tag:               locator.LocationTag,
						Cloud:             locator.Cloud,
						Bucket:            locator.Bucket,
						Region:            locator.Region,
						Key:               locator.Key,
						Size:              version.Size,
						LastModified:      version.LastModified,
						ETag:              version.ETag,
						MultipartUploadID: locator.MultipartUploadID,
						VersionID:         physicalVersionID(locator.VersionID, enabled),
						Version:           logicalVersion(version.ID, enabled),
					})
				}

				if !addObj && !replaced {
					version.Status = entity.StatusPendingDeletion
					if err := r.LogicalObjectRepo.Save(version); err != nil {
						return apperr.Internal("failed to stage logical deletion: %v", err)
					}
				}

				last = version
				if addObj || replaced {
					break
				}
			}

			if last != nil {
				var markerVersionID *string
				if !last.VersionSuspended && !versionNever(enabled) {
					id := strconv.FormatUint(uint64(last.ID), 10)
					markerVersionID = &id
				}
				resp.DeleteMarkers[key] = schema.DeleteMarker{
					DeleteMarker: last.DeleteMarker,
					VersionID:    markerVersionID,
				}
			}

			switch {
			case addObj:
				resp.OpType[key] = schema.OpTypeAdd
			case replaced:
				resp.OpType[key] = schema.OpTypeReplace
			default:
				resp.OpType[key] = schema.OpTypeDelete
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	e.logger.InfoWithContextf(ctx, "[Engine] start_delete_objects: bucket=%s keys=%d", req.Bucket, len(keys))
	return resp, nil
}

// CompleteDeleteObjects finalizes what StartDeleteObjects staged, one entry
// per physical locator id. "delete" removes the row (and the logical object
// once its last copy is gone), "add" readies a staged delete marker,
// "replace" needs no physical work at all.
func (e *Engine) CompleteDeleteObjects(ctx context.Context, req *schema.CompleteDeleteObjectsRequest) error {
	if len(req.MultipartUploadIDs) > 0 && len(req.MultipartUploadIDs) != len(req.IDs) {
		return apperr.BadRequest("Number of multipart upload ids must match number of ids")
	}
	if len(req.OpType) != len(req.IDs) {
		return apperr.BadRequest("Number of op types must match number of ids")
	}

	return e.transaction(func(r *repository.Repository) error {
		for i, id := range req.IDs {
			multipartUploadID := ""
			if len(req.MultipartUploadIDs) > 0 {
				multipartUploadID = req.MultipartUploadIDs[i]
			}

			switch req.OpType[i] {
			case schema.OpTypeDelete:
				locator, err := r.PhysicalObjectRepo.FindByIDAndMultipart(id, multipartUploadID)
				if err != nil {
					return apperr.Internal("failed to load physical locator: %v", err)
				}
				if locator == nil {
					return apperr.NotFound("Physical Object Not Found")
				}
				if locator.Status != entity.StatusPendingDeletion {
					return apperr.Conflict("Physical object is not marked for deletion")
				}
				logicalObjectID := locator.LogicalObjectID
				if err := r.PhysicalObjectRepo.Delete(locator); err != nil {
					return apperr.Internal("failed to delete physical locator: %v", err)
				}
				remaining, err := r.PhysicalObjectRepo.CountByLogicalObjectID(logicalObjectID)
				if err != nil {
					return apperr.Internal("failed to count locators: %v", err)
				}
				if remaining == 0 {
					logicalObject, err := r.LogicalObjectRepo.FindByID(logicalObjectID)
					if err != nil {
						return apperr.Internal("failed to load logical object: %v", err)
					}
					if logicalObject != nil {
						if err := r.LogicalObjectRepo.Delete(logicalObject); err != nil {
							return apperr.Internal("failed to delete logical object: %v", err)
						}
					}
				}

			case schema.OpTypeReplace:
				continue

			case schema.OpTypeAdd:
				locator, err := r.PhysicalObjectRepo.FindByIDAndMultipart(id, multipartUploadID)
				if err != nil {
					return apperr.Internal("failed to load physical locator: %v", err)
				}
				if locator == nil {
					return apperr.NotFound("Physical Object Not Found")
				}
				if locator.Status != entity.StatusPending {
					return apperr.Conflict("Physical object is not pending")
				}
				locator.Status = entity.StatusReady
				locator.LockAcquiredTs = nil
				if err := r.PhysicalObjectRepo.Save(locator); err != nil {
					return apperr.Internal("failed to ready delete marker locator: %v", err)
				}
				if i == 0 {
					logicalObject, err := r.LogicalObjectRepo.FindByID(locator.LogicalObjectID)
					if err != nil {
						return apperr.Internal("failed to load logical object: %v", err)
					}
					if logicalObject == nil {
						return apperr.NotFound("Logical Object Not Found")
					}
					logicalObject.Status = entity.StatusReady
					if err := r.LogicalObjectRepo.Save(logicalObject); err != nil {
						return apperr.Internal("failed to ready delete marker: %v", err)
					}
				}

			default:
				return apperr.BadRequest("Invalid op_type: %s", req.OpType[i])
			}
		}

		e.logger.InfoWithContextf(ctx, "[Engine] complete_delete_objects: entries=%d", len(req.IDs))
		return nil
	})
}
