package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/entity"
	infraPkg "github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy"
	"github.com/tnqbao/gau-store-server/repository"
	"github.com/tnqbao/gau-store-server/transfergraph"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testRegions = []string{"aws:us-west-1", "aws:us-east-1", "gcp:us-west1-a"}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, infraPkg.AutoMigrate(db))
	return db
}

func testLogger() *infraPkg.LoggerClient {
	return &infraPkg.LoggerClient{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testGraph() *transfergraph.Graph {
	g := transfergraph.New()
	for _, tag := range testRegions {
		g.AddNode(tag, transfergraph.Node{})
	}
	return g
}

// newTestEngine builds an engine on an in-memory database with the given
// policy names active (no Redis, env fallback only) and no broker.
func newTestEngine(t *testing.T, putPolicy, getPolicy string) (*Engine, *repository.Repository) {
	t.Helper()
	repo := repository.New(testDB(t))

	cfg := &config.EnvConfig{}
	cfg.Policy.PutPolicy = putPolicy
	cfg.Policy.GetPolicy = getPolicy
	cfg.Policy.InitRegions = testRegions
	cfg.Policy.SingleRegion = testRegions[0]
	cfg.Policy.DefaultTTL = 12 * 60 * 60

	policies := policy.NewStore(nil, cfg, testGraph())
	return New(repo, policies, testLogger(), nil), repo
}

// seedBucket creates a ready logical bucket with one physical locator per
// region; the first region is primary.
func seedBucket(t *testing.T, repo *repository.Repository, name string, versionEnabled *bool, regions ...string) *entity.LogicalBucket {
	t.Helper()
	if len(regions) == 0 {
		regions = testRegions
	}

	now := time.Now().UTC()
	bucket := &entity.LogicalBucket{
		Bucket:         name,
		Status:         entity.StatusReady,
		CreationDate:   &now,
		VersionEnabled: versionEnabled,
	}
	require.NoError(t, repo.BucketRepo.Create(bucket))

	for i, tag := range regions {
		cloud, region, _ := strings.Cut(tag, ":")
		require.NoError(t, repo.BucketRepo.CreateLocator(&entity.PhysicalBucketLocator{
			LogicalBucketID: bucket.ID,
			LocationTag:     tag,
			Cloud:           cloud,
			Region:          region,
			Bucket:          name + "-" + region,
			Prefix:          "",
			Status:          entity.StatusReady,
			IsPrimary:       i == 0,
		}))
	}

	loaded, err := repo.BucketRepo.FindByName(name)
	require.NoError(t, err)
	return loaded
}

func boolPtr(b bool) *bool    { return &b }
func uintPtr(u uint) *uint    { return &u }
func int64Ptr(i int64) *int64 { return &i }
