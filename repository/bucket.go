package repository

import (
	"errors"
	"time"

	"github.com/tnqbao/gau-store-server/entity"
	"gorm.io/gorm"
)

type BucketRepository struct {
	db *gorm.DB
}

func NewBucketRepository(db *gorm.DB) *BucketRepository {
	return &BucketRepository{db: db}
}

func (r *BucketRepository) Create(bucket *entity.LogicalBucket) error {
	return r.db.Create(bucket).Error
}

// FindByName loads a logical bucket with its physical locators, or nil when
// the bucket does not exist.
func (r *BucketRepository) FindByName(name string) (*entity.LogicalBucket, error) {
	var bucket entity.LogicalBucket
	err := r.db.Preload("PhysicalBucketLocators").Where("bucket = ?", name).First(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bucket, nil
}

func (r *BucketRepository) Save(bucket *entity.LogicalBucket) error {
	return r.db.Save(bucket).Error
}

func (r *BucketRepository) CreateLocator(locator *entity.PhysicalBucketLocator) error {
	return r.db.Create(locator).Error
}

// TimeoutStaleLocks force-resets physical bucket locators whose lock is
// older than the cutoff; recovers from provisioning calls that never
// completed.
func (r *BucketRepository) TimeoutStaleLocks(cutoff time.Time) (int64, error) {
	res := r.db.Model(&entity.PhysicalBucketLocator{}).
		Where("lock_acquired_ts IS NOT NULL AND lock_acquired_ts <= ?", cutoff).
		Updates(map[string]interface{}{"status": entity.StatusReady, "lock_acquired_ts": nil})
	return res.RowsAffected, res.Error
}

func (r *BucketRepository) FindPending() ([]entity.LogicalBucket, error) {
	var buckets []entity.LogicalBucket
	err := r.db.Preload("PhysicalBucketLocators").
		Where("status = ?", entity.StatusPending).
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *BucketRepository) UpdateStatus(id uint, status entity.Status) error {
	return r.db.Model(&entity.LogicalBucket{}).Where("id = ?", id).
		Update("status", status).Error
}
