// Package engine implements the object lifecycle state machine: the
// two-phase upload protocol, S3-compatible versioned deletes, read-path
// locator resolution and TTL-based cleanup. It records intent (pending
// rows) and lets complete_* calls and the reconciler drive convergence;
// there is no distributed transaction across regions.
package engine

import (
	"github.com/google/uuid"
	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/infra/produce"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/schema"
	"gorm.io/gorm"
)

type Engine struct {
	repo     *repository.Repository
	policies *policy.Store
	logger   *infra.LoggerClient
	produce  *produce.Produce
}

// New wires the engine. produce may be nil when no broker is attached
// (tests, or a deployment without gateway eviction consumers).
func New(repo *repository.Repository, policies *policy.Store, logger *infra.LoggerClient, produceService *produce.Produce) *Engine {
	return &Engine{
		repo:     repo,
		policies: policies,
		logger:   logger,
		produce:  produceService,
	}
}

// transaction runs fn against a repository bound to one database
// transaction.
func (e *Engine) transaction(fn func(r *repository.Repository) error) error {
	return e.repo.DB.Transaction(func(tx *gorm.DB) error {
		return fn(e.repo.WithTransaction(tx))
	})
}

// newLogicalObject stages a pending version row. When an existing object is
// given the identity and metadata carry over (a new version of the same
// key); otherwise the request supplies them.
func newLogicalObject(existing *entity.LogicalObject, req *schema.StartUploadRequest, versionSuspended, deleteMarker bool) *entity.LogicalObject {
	object := &entity.LogicalObject{
		Status:           entity.StatusPending,
		VersionSuspended: versionSuspended,
		DeleteMarker:     deleteMarker,
	}
	if existing != nil {
		object.Bucket = existing.Bucket
		object.Key = existing.Key
		object.Size = existing.Size
		object.LastModified = existing.LastModified
		object.ETag = existing.ETag
		object.MultipartUploadID = existing.MultipartUploadID
	} else {
		object.Bucket = req.Bucket
		object.Key = req.Key
		if req.IsMultipart {
			id := uuid.New().String()
			object.MultipartUploadID = &id
		}
	}
	return object
}

// versionEnabled/versionNever decode the tri-state versioning flag.
func versionEnabled(flag *bool) bool { return flag != nil && *flag }
func versionNever(flag *bool) bool   { return flag == nil }

// logicalVersion is the version number exposed to clients; buckets that
// never enabled versioning expose none.
func logicalVersion(id uint, flag *bool) *uint {
	if versionNever(flag) {
		return nil
	}
	v := id
	return &v
}

// physicalVersionID hides provider version tags on never-versioned buckets.
func physicalVersionID(versionID *string, flag *bool) *string {
	if versionNever(flag) {
		return nil
	}
	return versionID
}
