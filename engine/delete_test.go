package engine

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/schema"
)

// putObject uploads and completes one object, returning the locator id.
func putObject(t *testing.T, eng *Engine, bucket, key, region string) uint {
	t.Helper()
	ctx := context.Background()
	start, err := eng.StartUpload(ctx, &schema.StartUploadRequest{
		Bucket: bucket, Key: key, ClientFromRegion: region,
	})
	require.NoError(t, err)
	require.NotEmpty(t, start.Locators)
	require.NoError(t, eng.CompleteUpload(ctx, &schema.CompleteUploadRequest{
		ID: start.Locators[0].ID, Size: 10, ETag: "e", LastModified: time.Now().UTC(),
	}))
	return start.Locators[0].ID
}

func TestDeleteUnversionedObject(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	locatorID := putObject(t, eng, "b", "k", testRegions[0])

	start, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.OpTypeDelete, start.OpType["k"])
	require.Len(t, start.Locators["k"], 1)
	assert.Equal(t, locatorID, start.Locators["k"][0].ID)
	assert.False(t, start.DeleteMarkers["k"].DeleteMarker)

	locator, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingDeletion, locator.Status)
	logicalID := locator.LogicalObjectID

	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{locatorID},
		OpType: []schema.OpType{schema.OpTypeDelete},
	}))

	gone, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	logical, err := repo.LogicalObjectRepo.FindByID(logicalID)
	require.NoError(t, err)
	assert.Nil(t, logical, "last copy removal deletes the logical object")
}

func TestDeleteOnVersionedBucketStagesMarker(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", boolPtr(true))
	ctx := context.Background()

	objLocatorID := putObject(t, eng, "b", "k", testRegions[0])

	start, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.OpTypeAdd, start.OpType["k"])
	assert.True(t, start.DeleteMarkers["k"].DeleteMarker)
	require.NotNil(t, start.DeleteMarkers["k"].VersionID)
	require.Len(t, start.Locators["k"], 1)
	markerLocatorID := start.Locators["k"][0].ID
	assert.NotEqual(t, objLocatorID, markerLocatorID, "the marker gets its own locator rows")

	// The original copy is untouched.
	original, err := repo.PhysicalObjectRepo.FindByID(objLocatorID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, original.Status)

	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{markerLocatorID},
		OpType: []schema.OpType{schema.OpTypeAdd},
	}))

	marker, err := repo.PhysicalObjectRepo.FindByID(markerLocatorID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, marker.Status)
	assert.Nil(t, marker.LockAcquiredTs)
	logical, err := repo.LogicalObjectRepo.FindByID(marker.LogicalObjectID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, logical.Status)
	assert.True(t, logical.DeleteMarker)
}

func TestDeleteOnSuspendedBucketReplacesInPlace(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", boolPtr(false))
	ctx := context.Background()

	locatorID := putObject(t, eng, "b", "k", testRegions[0])
	locator, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	logicalID := locator.LogicalObjectID

	start, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.OpTypeReplace, start.OpType["k"])
	assert.True(t, start.DeleteMarkers["k"].DeleteMarker)
	assert.Nil(t, start.DeleteMarkers["k"].VersionID, "suspended markers carry no version id")

	logical, err := repo.LogicalObjectRepo.FindByID(logicalID)
	require.NoError(t, err)
	assert.True(t, logical.DeleteMarker)
	assert.Equal(t, entity.StatusReady, logical.Status, "replace needs no completion")

	// Nothing physical changed, so replace entries are a no-op to complete.
	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{locatorID},
		OpType: []schema.OpType{schema.OpTypeReplace},
	}))
}

func TestDeleteSpecificVersion(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", boolPtr(true))
	ctx := context.Background()

	firstLocator := putObject(t, eng, "b", "k", testRegions[0])
	putObject(t, eng, "b", "k", testRegions[0])

	first, err := repo.PhysicalObjectRepo.FindByID(firstLocator)
	require.NoError(t, err)
	firstVersion := first.LogicalObjectID

	start, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {firstVersion}},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.OpTypeDelete, start.OpType["k"])
	require.Len(t, start.Locators["k"], 1)
	assert.Equal(t, firstLocator, start.Locators["k"][0].ID)

	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{firstLocator},
		OpType: []schema.OpType{schema.OpTypeDelete},
	}))

	// The newer version still resolves.
	located, err := eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
	})
	require.NoError(t, err)
	assert.NotEqual(t, firstLocator, located.ID)
}

func TestDeleteSpecificVersionOnNeverVersionedBucket(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	_, err := eng.StartDeleteObjects(context.Background(), &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {1}},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestDeleteUnknownKey(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	_, err := eng.StartDeleteObjects(context.Background(), &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"missing": {}},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
}

func TestStartDeleteMismatchedMultipartLengths(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	_, err := eng.StartDeleteObjects(context.Background(), &schema.DeleteObjectsRequest{
		Bucket:             "b",
		ObjectIdentifiers:  map[string][]uint{"a": {}, "b": {}},
		MultipartUploadIDs: []string{"only-one"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestCompleteDeleteMismatchedLengths(t *testing.T) {
	eng, _ := newTestEngine(t, "write_local", "direct")

	err := eng.CompleteDeleteObjects(context.Background(), &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{1, 2},
		OpType: []schema.OpType{schema.OpTypeDelete},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestCompleteDeleteInvalidOpType(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	locatorID := putObject(t, eng, "b", "k", testRegions[0])
	_, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {}},
	})
	require.NoError(t, err)

	err = eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{locatorID},
		OpType: []schema.OpType{"purge"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestCompleteDeleteRequiresPendingDeletion(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	// Completed upload but never staged for deletion.
	locatorID := putObject(t, eng, "b", "k", testRegions[0])

	err := eng.CompleteDeleteObjects(context.Background(), &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{locatorID},
		OpType: []schema.OpType{schema.OpTypeDelete},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(err))
}

func TestDeletePendingVersionNotFound(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", boolPtr(true))
	ctx := context.Background()

	// Upload started but not completed: locator still pending.
	start, err := eng.StartUpload(ctx, &schema.StartUploadRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
	})
	require.NoError(t, err)
	locator, err := repo.PhysicalObjectRepo.FindByID(start.Locators[0].ID)
	require.NoError(t, err)

	_, err = eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {locator.LogicalObjectID}},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err), "pending versions are not deletable without a multipart id")
}

func TestAbortMultipartUpload(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	start, err := eng.StartUpload(ctx, &schema.StartUploadRequest{
		Bucket:           "b",
		Key:              "k",
		ClientFromRegion: testRegions[0],
		IsMultipart:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, start.MultipartUploadID)
	uploadID := *start.MultipartUploadID

	del, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:             "b",
		ObjectIdentifiers:  map[string][]uint{"k": {}},
		MultipartUploadIDs: []string{uploadID},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.OpTypeDelete, del.OpType["k"])
	require.Len(t, del.Locators["k"], 1)

	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:                []uint{del.Locators["k"][0].ID},
		OpType:             []schema.OpType{schema.OpTypeDelete},
		MultipartUploadIDs: []string{uploadID},
	}))

	gone, err := repo.PhysicalObjectRepo.FindByID(del.Locators["k"][0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
