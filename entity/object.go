package entity

import "time"

// LogicalObject is one version of a (bucket, key) pair, independent of where
// its bytes live. The auto-incrementing ID doubles as the version order:
// highest ID is the most recent version.
type LogicalObject struct {
	ID                uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Bucket            string     `json:"bucket" gorm:"not null;index:idx_logical_objects_bucket_key"`
	Key               string     `json:"key" gorm:"not null;index:idx_logical_objects_bucket_key"`
	Size              *int64     `json:"size"`
	LastModified      *time.Time `json:"last_modified"`
	ETag              *string    `json:"etag" gorm:"column:etag;type:varchar(255)"`
	Status            Status     `json:"status" gorm:"type:varchar(32);not null;index"`
	MultipartUploadID *string    `json:"multipart_upload_id" gorm:"type:varchar(64)"`
	VersionSuspended  bool       `json:"version_suspended" gorm:"not null;default:false"`
	DeleteMarker      bool       `json:"delete_marker" gorm:"not null;default:false"`
	BaseRegion        string     `json:"base_region" gorm:"type:varchar(64)"`

	PhysicalObjectLocators []PhysicalObjectLocator `json:"physical_object_locators,omitempty" gorm:"foreignKey:LogicalObjectID;constraint:OnDelete:CASCADE"`
}

// PhysicalObjectLocator is one concrete copy of a logical object in one
// cloud region. LockAcquiredTs is non-null while a gateway write or delete
// is in flight; the reconciler force-clears stale locks.
type PhysicalObjectLocator struct {
	ID                uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	LogicalObjectID   uint       `json:"logical_object_id" gorm:"not null;index"`
	LocationTag       string     `json:"location_tag" gorm:"type:varchar(64);not null;index"`
	Cloud             string     `json:"cloud" gorm:"type:varchar(32);not null"`
	Region            string     `json:"region" gorm:"type:varchar(64);not null"`
	Bucket            string     `json:"bucket" gorm:"not null"`
	Key               string     `json:"key" gorm:"not null"`
	VersionID         *string    `json:"version_id" gorm:"type:varchar(255)"`
	Status            Status     `json:"status" gorm:"type:varchar(32);not null;index"`
	IsPrimary         bool       `json:"is_primary" gorm:"not null;default:false"`
	LockAcquiredTs    *time.Time `json:"lock_acquired_ts"`
	MultipartUploadID *string    `json:"multipart_upload_id" gorm:"type:varchar(64)"`

	// TTL is in seconds; -1 means the copy never expires. The eviction
	// clock starts at StorageStartTime, which a local read resets.
	TTL              int64      `json:"ttl" gorm:"not null;default:-1"`
	StorageStartTime *time.Time `json:"storage_start_time"`

	LogicalObject *LogicalObject `json:"logical_object,omitempty" gorm:"foreignKey:LogicalObjectID"`
}
