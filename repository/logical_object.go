package repository

import (
	"errors"

	"github.com/tnqbao/gau-store-server/entity"
	"gorm.io/gorm"
)

type LogicalObjectRepository struct {
	db *gorm.DB
}

func NewLogicalObjectRepository(db *gorm.DB) *LogicalObjectRepository {
	return &LogicalObjectRepository{db: db}
}

func (r *LogicalObjectRepository) Create(object *entity.LogicalObject) error {
	return r.db.Create(object).Error
}

func (r *LogicalObjectRepository) Save(object *entity.LogicalObject) error {
	return r.db.Save(object).Error
}

func (r *LogicalObjectRepository) Delete(object *entity.LogicalObject) error {
	return r.db.Delete(object).Error
}

// FindLatestWithLocators returns the newest (highest id) logical object for
// (bucket, key) within the given statuses, or the exact version when
// versionID is set. Physical locators are preloaded. Returns nil when no
// row matches.
func (r *LogicalObjectRepository) FindLatestWithLocators(bucket, key string, statuses []entity.Status, versionID *uint) (*entity.LogicalObject, error) {
	query := r.db.Preload("PhysicalObjectLocators").
		Where("bucket = ? AND key = ?", bucket, key).
		Where("status IN ?", statuses)
	if versionID != nil {
		query = query.Where("id = ?", *versionID)
	} else {
		query = query.Order("id DESC")
	}

	var object entity.LogicalObject
	if err := query.First(&object).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &object, nil
}

// FindReadyWithReadyLocator resolves the read path: the newest (or exact)
// ready logical object that has at least one ready physical copy. The
// preloaded locator list is restricted to ready copies, which is exactly
// the transfer-policy candidate set.
func (r *LogicalObjectRepository) FindReadyWithReadyLocator(bucket, key string, versionID *uint) (*entity.LogicalObject, error) {
	query := r.db.
		Preload("PhysicalObjectLocators", "status = ?", entity.StatusReady).
		Joins("JOIN physical_object_locators ON physical_object_locators.logical_object_id = logical_objects.id").
		Where("logical_objects.bucket = ? AND logical_objects.key = ?", bucket, key).
		Where("logical_objects.status = ?", entity.StatusReady).
		Where("physical_object_locators.status = ?", entity.StatusReady)
	if versionID != nil {
		query = query.Where("logical_objects.id = ?", *versionID)
	} else {
		query = query.Order("logical_objects.id DESC")
	}

	var object entity.LogicalObject
	if err := query.First(&object).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &object, nil
}

// FindVersionsForDelete returns every deletable version of (bucket, key),
// newest first. With a multipart upload id the match is the single
// in-progress upload (ready or pending); otherwise only ready versions
// qualify.
func (r *LogicalObjectRepository) FindVersionsForDelete(bucket, key string, multipartUploadID *string) ([]entity.LogicalObject, error) {
	query := r.db.Preload("PhysicalObjectLocators").
		Where("bucket = ? AND key = ?", bucket, key).
		Order("id DESC")
	if multipartUploadID != nil && *multipartUploadID != "" {
		query = query.
			Where("status IN ?", []entity.Status{entity.StatusReady, entity.StatusPending}).
			Where("multipart_upload_id = ?", *multipartUploadID)
	} else {
		query = query.Where("status = ?", entity.StatusReady)
	}

	var objects []entity.LogicalObject
	if err := query.Find(&objects).Error; err != nil {
		return nil, err
	}
	return objects, nil
}

func (r *LogicalObjectRepository) FindByID(id uint) (*entity.LogicalObject, error) {
	var object entity.LogicalObject
	if err := r.db.Where("id = ?", id).First(&object).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &object, nil
}

func (r *LogicalObjectRepository) FindPending() ([]entity.LogicalObject, error) {
	var objects []entity.LogicalObject
	err := r.db.Preload("PhysicalObjectLocators").
		Where("status = ?", entity.StatusPending).
		Find(&objects).Error
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (r *LogicalObjectRepository) UpdateStatus(id uint, status entity.Status) error {
	return r.db.Model(&entity.LogicalObject{}).Where("id = ?", id).
		Update("status", status).Error
}
