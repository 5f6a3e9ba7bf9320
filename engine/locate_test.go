package engine

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/schema"
)

func TestLocateObjectNotFound(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	_, err := eng.LocateObject(context.Background(), &schema.LocateObjectRequest{
		Bucket: "b", Key: "missing", ClientFromRegion: testRegions[0],
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
}

func TestLocateVersionOnNeverVersionedBucket(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)

	_, err := eng.LocateObject(context.Background(), &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
		VersionID: uintPtr(1),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestLocateDeleteMarkerSemantics(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", boolPtr(true))
	ctx := context.Background()

	putObject(t, eng, "b", "k", testRegions[0])

	del, err := eng.StartDeleteObjects(ctx, &schema.DeleteObjectsRequest{
		Bucket:            "b",
		ObjectIdentifiers: map[string][]uint{"k": {}},
	})
	require.NoError(t, err)
	require.Equal(t, schema.OpTypeAdd, del.OpType["k"])
	require.NoError(t, eng.CompleteDeleteObjects(ctx, &schema.CompleteDeleteObjectsRequest{
		IDs:    []uint{del.Locators["k"][0].ID},
		OpType: []schema.OpType{schema.OpTypeAdd},
	}))

	// The marker hides the key from plain reads.
	_, err = eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	// Addressing the marker itself is refused, not "not found".
	require.NotNil(t, del.DeleteMarkers["k"].VersionID)
	markerVersion, err := strconv.ParseUint(*del.DeleteMarkers["k"].VersionID, 10, 64)
	require.NoError(t, err)
	v := uint(markerVersion)
	_, err = eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
		VersionID: &v,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, apperr.StatusOf(err))

	// Older versions stay reachable by exact version.
	located, err := eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
		VersionID: uintPtr(v - 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "k", located.Key)
}

func TestLocateLocalReadRefreshesStorageClock(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	locatorID := putObject(t, eng, "b", "k", testRegions[0])

	// Age the copy.
	old := time.Now().UTC().Add(-time.Hour)
	locator, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	locator.StorageStartTime = &old
	require.NoError(t, repo.PhysicalObjectRepo.Save(locator))

	_, err = eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0], Op: "GET",
	})
	require.NoError(t, err)

	refreshed, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.StorageStartTime)
	assert.True(t, refreshed.StorageStartTime.After(old), "local GET restarts the eviction clock")

	// HEAD does not.
	headBase := *refreshed.StorageStartTime
	locator.StorageStartTime = &old
	require.NoError(t, repo.PhysicalObjectRepo.Save(locator))
	_, err = eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0], Op: "HEAD",
	})
	require.NoError(t, err)
	afterHead, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	assert.True(t, afterHead.StorageStartTime.Before(headBase), "HEAD leaves the clock alone")
}

func TestLocateRemoteReadDoesNotRefresh(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	locatorID := putObject(t, eng, "b", "k", testRegions[0])
	old := time.Now().UTC().Add(-time.Hour)
	locator, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	locator.StorageStartTime = &old
	require.NoError(t, repo.PhysicalObjectRepo.Save(locator))

	// Reader in another region: the chosen copy is remote, no refresh.
	located, err := eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[1], Op: "GET",
	})
	require.NoError(t, err)
	assert.Equal(t, testRegions[0], located.Tag)

	after, err := repo.PhysicalObjectRepo.FindByID(locatorID)
	require.NoError(t, err)
	assert.WithinDuration(t, old, *after.StorageStartTime, time.Second)
}

func TestLocateReturnsTransferTTL(t *testing.T) {
	eng, repo := newTestEngine(t, "write_local", "direct")
	seedBucket(t, repo, "b", nil)
	ctx := context.Background()

	putObject(t, eng, "b", "k", testRegions[0])

	located, err := eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
	})
	require.NoError(t, err)
	require.NotNil(t, located.TTL)
	assert.Equal(t, int64(12*60*60), *located.TTL)

	// Client override wins.
	located, err = eng.LocateObject(ctx, &schema.LocateObjectRequest{
		Bucket: "b", Key: "k", ClientFromRegion: testRegions[0],
		TTL: int64Ptr(60),
	})
	require.NoError(t, err)
	require.NotNil(t, located.TTL)
	assert.Equal(t, int64(60), *located.TTL)
}
