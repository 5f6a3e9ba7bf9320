package repository

import (
	"errors"
	"time"

	"github.com/tnqbao/gau-store-server/entity"
	"gorm.io/gorm"
)

type PhysicalObjectRepository struct {
	db *gorm.DB
}

func NewPhysicalObjectRepository(db *gorm.DB) *PhysicalObjectRepository {
	return &PhysicalObjectRepository{db: db}
}

func (r *PhysicalObjectRepository) Create(locator *entity.PhysicalObjectLocator) error {
	return r.db.Create(locator).Error
}

func (r *PhysicalObjectRepository) CreateAll(locators []entity.PhysicalObjectLocator) error {
	if len(locators) == 0 {
		return nil
	}
	return r.db.Create(&locators).Error
}

func (r *PhysicalObjectRepository) Save(locator *entity.PhysicalObjectLocator) error {
	return r.db.Save(locator).Error
}

func (r *PhysicalObjectRepository) Delete(locator *entity.PhysicalObjectLocator) error {
	return r.db.Delete(locator).Error
}

// FindByID loads a locator with its owning logical object, or nil.
func (r *PhysicalObjectRepository) FindByID(id uint) (*entity.PhysicalObjectLocator, error) {
	var locator entity.PhysicalObjectLocator
	err := r.db.Preload("LogicalObject").Where("id = ?", id).First(&locator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &locator, nil
}

// FindByIDAndMultipart applies the optional multipart upload id filter used
// by the delete-completion path.
func (r *PhysicalObjectRepository) FindByIDAndMultipart(id uint, multipartUploadID string) (*entity.PhysicalObjectLocator, error) {
	query := r.db.Preload("LogicalObject").Where("id = ?", id)
	if multipartUploadID != "" {
		query = query.Where("multipart_upload_id = ?", multipartUploadID)
	}

	var locator entity.PhysicalObjectLocator
	if err := query.First(&locator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &locator, nil
}

func (r *PhysicalObjectRepository) CountByLogicalObjectID(logicalObjectID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.PhysicalObjectLocator{}).
		Where("logical_object_id = ?", logicalObjectID).
		Count(&count).Error
	return count, err
}

// FindExpired returns ready locators whose eviction clock has run out at
// the given timestamp. TTL -1 copies never expire. The clock comparison is
// done in Go so the query stays portable across dialects.
func (r *PhysicalObjectRepository) FindExpired(now time.Time) ([]entity.PhysicalObjectLocator, error) {
	var candidates []entity.PhysicalObjectLocator
	err := r.db.
		Where("ttl != ?", int64(-1)).
		Where("status = ?", entity.StatusReady).
		Where("storage_start_time IS NOT NULL").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	var expired []entity.PhysicalObjectLocator
	for _, locator := range candidates {
		deadline := locator.StorageStartTime.Add(time.Duration(locator.TTL) * time.Second)
		if !deadline.After(now) {
			expired = append(expired, locator)
		}
	}
	return expired, nil
}

func (r *PhysicalObjectRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Delete(&entity.PhysicalObjectLocator{}, "id IN ?", ids).Error
}

// TimeoutStaleLocks force-resets locators whose lock is older than the
// cutoff to ready with the lock cleared; this is the crash recovery for
// gateways that never called complete_*.
func (r *PhysicalObjectRepository) TimeoutStaleLocks(cutoff time.Time) (int64, error) {
	res := r.db.Model(&entity.PhysicalObjectLocator{}).
		Where("lock_acquired_ts IS NOT NULL AND lock_acquired_ts <= ?", cutoff).
		Updates(map[string]interface{}{"status": entity.StatusReady, "lock_acquired_ts": nil})
	return res.RowsAffected, res.Error
}
