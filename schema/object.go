package schema

import "time"

// StartUploadRequest asks the control plane where a gateway should write.
// VersionID targets an exact logical version; CopySrcBucket/CopySrcKey turn
// the upload into a copy whose data the gateway pulls from the source copies.
type StartUploadRequest struct {
	Bucket           string  `json:"bucket" binding:"required"`
	Key              string  `json:"key" binding:"required"`
	ClientFromRegion string  `json:"client_from_region" binding:"required"`
	VersionID        *uint   `json:"version_id"`
	IsMultipart      bool    `json:"is_multipart"`
	CopySrcBucket    *string `json:"copy_src_bucket"`
	CopySrcKey       *string `json:"copy_src_key"`
	TTL              *int64  `json:"ttl"`
}

type StartUploadResponse struct {
	MultipartUploadID *string                `json:"multipart_upload_id"`
	Locators          []LocateObjectResponse `json:"locators"`
	CopySrcBuckets    []string               `json:"copy_src_buckets"`
	CopySrcKeys       []string               `json:"copy_src_keys"`
}

// CompleteUploadRequest reports a finished transfer for one physical locator.
type CompleteUploadRequest struct {
	ID           uint      `json:"id" binding:"required"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
	VersionID    *string   `json:"version_id"`
	TTL          *int64    `json:"ttl"`
}

type LocateObjectRequest struct {
	Bucket           string `json:"bucket" binding:"required"`
	Key              string `json:"key" binding:"required"`
	ClientFromRegion string `json:"client_from_region" binding:"required"`
	VersionID        *uint  `json:"version_id"`
	TTL              *int64 `json:"ttl"`
	Op               string `json:"op"`
}

// LocateObjectResponse describes one physical copy a gateway should use.
// Version is the logical version (omitted for never-versioned buckets),
// VersionID the cloud-provider tag assigned at completion.
type LocateObjectResponse struct {
	ID                uint       `json:"id"`
	Tag               string     `json:"tag"`
	Cloud             string     `json:"cloud"`
	Bucket            string     `json:"bucket"`
	Region            string     `json:"region"`
	Key               string     `json:"key"`
	Size              *int64     `json:"size,omitempty"`
	LastModified      *time.Time `json:"last_modified,omitempty"`
	ETag              *string    `json:"etag,omitempty"`
	MultipartUploadID *string    `json:"multipart_upload_id,omitempty"`
	VersionID         *string    `json:"version_id,omitempty"`
	Version           *uint      `json:"version,omitempty"`
	TTL               *int64     `json:"ttl,omitempty"`
}

// DeleteObjectsRequest batches deletes per key. An empty version list for a
// key is a simple delete (latest / unversioned); a non-empty list targets
// those exact logical versions.
type DeleteObjectsRequest struct {
	Bucket             string            `json:"bucket" binding:"required"`
	ObjectIdentifiers  map[string][]uint `json:"object_identifiers" binding:"required"`
	MultipartUploadIDs []string          `json:"multipart_upload_ids"`
}

type DeleteMarker struct {
	DeleteMarker bool    `json:"delete_marker"`
	VersionID    *string `json:"version_id"`
}

// OpType tells complete_delete_objects what the start call staged per key.
type OpType string

const (
	OpTypeAdd     OpType = "add"
	OpTypeReplace OpType = "replace"
	OpTypeDelete  OpType = "delete"
)

type DeleteObjectsResponse struct {
	Locators      map[string][]LocateObjectResponse `json:"locators"`
	DeleteMarkers map[string]DeleteMarker           `json:"delete_markers"`
	OpType        map[string]OpType                 `json:"op_type"`
}

type CompleteDeleteObjectsRequest struct {
	IDs                []uint   `json:"ids" binding:"required"`
	OpType             []OpType `json:"op_type" binding:"required"`
	MultipartUploadIDs []string `json:"multipart_upload_ids"`
}

type CleanObjectRequest struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

type CleanObjectResponse struct {
	Locators []LocateObjectResponse `json:"locators"`
}

type UpdatePolicyRequest struct {
	PutPolicy string `json:"put_policy"`
	GetPolicy string `json:"get_policy"`
}

type HealthcheckResponse struct {
	Status string `json:"status"`
}
