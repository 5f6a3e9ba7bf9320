package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/engine"
	"github.com/tnqbao/gau-store-server/entity"
	infraPkg "github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/transfergraph"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testSetup(t *testing.T) (*infraPkg.Infra, *repository.Repository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, infraPkg.AutoMigrate(db))

	infra := &infraPkg.Infra{
		Logger: &infraPkg.LoggerClient{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
	return infra, repository.New(db)
}

func seedObject(t *testing.T, repo *repository.Repository, key string, objectStatus, locatorStatus entity.Status, lockAge time.Duration) (*entity.LogicalObject, *entity.PhysicalObjectLocator) {
	t.Helper()
	object := &entity.LogicalObject{
		Bucket: "b",
		Key:    key,
		Status: objectStatus,
	}
	require.NoError(t, repo.LogicalObjectRepo.Create(object))

	locator := &entity.PhysicalObjectLocator{
		LogicalObjectID: object.ID,
		LocationTag:     "aws:us-west-1",
		Cloud:           "aws",
		Region:          "us-west-1",
		Bucket:          "b-us-west-1",
		Key:             key,
		Status:          locatorStatus,
		TTL:             -1,
	}
	if lockAge > 0 {
		ts := time.Now().UTC().Add(-lockAge)
		locator.LockAcquiredTs = &ts
	}
	require.NoError(t, repo.PhysicalObjectRepo.Create(locator))
	return object, locator
}

func TestSweepReleasesStaleLocks(t *testing.T) {
	infra, repo := testSetup(t)
	w := NewLockTimeoutWorker(infra, repo, 10*time.Minute, time.Minute)

	_, stale := seedObject(t, repo, "stale", entity.StatusPending, entity.StatusPending, 30*time.Minute)
	_, fresh := seedObject(t, repo, "fresh", entity.StatusPending, entity.StatusPending, time.Minute)

	w.Sweep(context.Background(), time.Now().UTC())

	released, err := repo.PhysicalObjectRepo.FindByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, released.Status)
	assert.Nil(t, released.LockAcquiredTs)

	held, err := repo.PhysicalObjectRepo.FindByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, held.Status)
	assert.NotNil(t, held.LockAcquiredTs)
}

func TestSweepPromotesObjectsWithAllReadyChildren(t *testing.T) {
	infra, repo := testSetup(t)
	w := NewLockTimeoutWorker(infra, repo, 10*time.Minute, time.Minute)

	readyChildren, _ := seedObject(t, repo, "converged", entity.StatusPending, entity.StatusReady, 0)
	mixed, _ := seedObject(t, repo, "lagging", entity.StatusPending, entity.StatusPending, time.Minute)

	w.Sweep(context.Background(), time.Now().UTC())

	promoted, err := repo.LogicalObjectRepo.FindByID(readyChildren.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, promoted.Status)

	waiting, err := repo.LogicalObjectRepo.FindByID(mixed.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, waiting.Status)
}

func TestSweepStaleLockThenPromotionConverges(t *testing.T) {
	infra, repo := testSetup(t)
	w := NewLockTimeoutWorker(infra, repo, 10*time.Minute, time.Minute)

	// Crashed gateway: lock stale, everything pending. One sweep releases
	// the lock and promotes the parent.
	object, _ := seedObject(t, repo, "crashed", entity.StatusPending, entity.StatusPending, time.Hour)

	w.Sweep(context.Background(), time.Now().UTC())

	promoted, err := repo.LogicalObjectRepo.FindByID(object.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, promoted.Status)
}

func TestSweepIgnoresChildlessPendingObjects(t *testing.T) {
	infra, repo := testSetup(t)
	w := NewLockTimeoutWorker(infra, repo, 10*time.Minute, time.Minute)

	object := &entity.LogicalObject{Bucket: "b", Key: "orphan", Status: entity.StatusPending}
	require.NoError(t, repo.LogicalObjectRepo.Create(object))

	w.Sweep(context.Background(), time.Now().UTC())

	still, err := repo.LogicalObjectRepo.FindByID(object.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, still.Status)
}

func TestSweepPromotesBuckets(t *testing.T) {
	infra, repo := testSetup(t)
	w := NewLockTimeoutWorker(infra, repo, 10*time.Minute, time.Minute)

	bucket := &entity.LogicalBucket{Bucket: "warming", Status: entity.StatusPending}
	require.NoError(t, repo.BucketRepo.Create(bucket))
	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.BucketRepo.CreateLocator(&entity.PhysicalBucketLocator{
		LogicalBucketID: bucket.ID,
		LocationTag:     "aws:us-west-1",
		Cloud:           "aws",
		Region:          "us-west-1",
		Bucket:          "warming-us-west-1",
		Status:          entity.StatusPending,
		LockAcquiredTs:  &stale,
	}))

	w.Sweep(context.Background(), time.Now().UTC())

	loaded, err := repo.BucketRepo.FindByName("warming")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, loaded.Status)
	assert.Equal(t, entity.StatusReady, loaded.PhysicalBucketLocators[0].Status)
}

func TestExpiryWorkerSweep(t *testing.T) {
	infra, repo := testSetup(t)

	cfg := &config.EnvConfig{}
	cfg.Policy.PutPolicy = "write_local"
	cfg.Policy.GetPolicy = "direct"
	cfg.Policy.InitRegions = []string{"aws:us-west-1"}
	cfg.Policy.SingleRegion = "aws:us-west-1"
	cfg.Policy.DefaultTTL = 3600
	g := transfergraph.New()
	g.AddNode("aws:us-west-1", transfergraph.Node{})
	eng := engine.New(repo, policy.NewStore(nil, cfg, g), infra.Logger, nil)

	_, locator := seedObject(t, repo, "expired", entity.StatusReady, entity.StatusReady, 0)
	old := time.Now().UTC().Add(-2 * time.Hour)
	locator.TTL = 60
	locator.StorageStartTime = &old
	require.NoError(t, repo.PhysicalObjectRepo.Save(locator))

	w := NewExpiryWorker(infra, eng, time.Second)
	w.Sweep(context.Background(), time.Now().UTC())

	gone, err := repo.PhysicalObjectRepo.FindByID(locator.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
