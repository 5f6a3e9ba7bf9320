package entity

import "time"

// LogicalBucket is the bucket-level record this service consults. Bucket
// creation and deletion belong to the provisioning plane; the lifecycle
// engine only reads these rows and the reconciler heals their locks.
//
// VersionEnabled is tri-state: nil means versioning was never enabled,
// false means suspended, true means enabled. It never returns to nil.
type LogicalBucket struct {
	ID             uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Bucket         string     `json:"bucket" gorm:"uniqueIndex;not null"`
	Prefix         string     `json:"prefix" gorm:"not null"`
	Status         Status     `json:"status" gorm:"type:varchar(32);not null;index"`
	CreationDate   *time.Time `json:"creation_date"`
	VersionEnabled *bool      `json:"version_enabled"`

	PhysicalBucketLocators []PhysicalBucketLocator `json:"physical_bucket_locators,omitempty" gorm:"foreignKey:LogicalBucketID;constraint:OnDelete:CASCADE"`
}

// PhysicalBucketLocator is the per-region physical bucket a logical bucket
// maps onto. Prefix is prepended to logical keys to form physical keys.
type PhysicalBucketLocator struct {
	ID              uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	LogicalBucketID uint       `json:"logical_bucket_id" gorm:"not null;index"`
	LocationTag     string     `json:"location_tag" gorm:"type:varchar(64);not null;index"`
	Cloud           string     `json:"cloud" gorm:"type:varchar(32);not null"`
	Region          string     `json:"region" gorm:"type:varchar(64);not null"`
	Bucket          string     `json:"bucket" gorm:"not null"`
	Prefix          string     `json:"prefix" gorm:"not null"`
	Status          Status     `json:"status" gorm:"type:varchar(32);not null;index"`
	IsPrimary       bool       `json:"is_primary" gorm:"not null;default:false"`
	NeedWarmup      bool       `json:"need_warmup" gorm:"not null;default:false"`
	LockAcquiredTs  *time.Time `json:"lock_acquired_ts"`
}
