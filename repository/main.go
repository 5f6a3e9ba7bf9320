package repository

import (
	"github.com/tnqbao/gau-store-server/infra"
	"gorm.io/gorm"
)

type Repository struct {
	DB                 *gorm.DB
	BucketRepo         *BucketRepository
	LogicalObjectRepo  *LogicalObjectRepository
	PhysicalObjectRepo *PhysicalObjectRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = New(infra.Postgres.DB)
	return repository
}

// New binds all repositories to one gorm handle; used directly by tests.
func New(db *gorm.DB) *Repository {
	return &Repository{
		DB:                 db,
		BucketRepo:         NewBucketRepository(db),
		LogicalObjectRepo:  NewLogicalObjectRepository(db),
		PhysicalObjectRepo: NewPhysicalObjectRepository(db),
	}
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

// WithTransaction rebinds every repository to the given transaction handle.
func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return New(tx)
}

// LockLogicalObjectsExclusive serializes unversioned writers with a
// table-level exclusive lock for the remainder of the transaction. Only
// postgres supports the statement; other dialects (sqlite in tests) already
// serialize writers at the database level.
func (r *Repository) LockLogicalObjectsExclusive() error {
	if r.DB.Dialector.Name() != "postgres" {
		return nil
	}
	return r.DB.Exec("LOCK TABLE logical_objects IN EXCLUSIVE MODE").Error
}
