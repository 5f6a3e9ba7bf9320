package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/tnqbao/gau-store-server/config"
	"github.com/tnqbao/gau-store-server/infra"
	"github.com/tnqbao/gau-store-server/policy/placement"
	"github.com/tnqbao/gau-store-server/policy/transfer"
	"github.com/tnqbao/gau-store-server/transfergraph"
)

const (
	putPolicyKey = "policy:put"
	getPolicyKey = "policy:get"
)

// Store resolves the active put/get policy names once per request. The
// names live in Redis so they can be switched at runtime across all
// replicas; the env config supplies the fallback when Redis has no entry
// (or no Redis is wired, as in tests).
type Store struct {
	redis       *infra.RedisClient
	graph       *transfergraph.Graph
	placement   placement.Options
	putFallback string
	getFallback string
}

func NewStore(redis *infra.RedisClient, cfg *config.EnvConfig, graph *transfergraph.Graph) *Store {
	return &Store{
		redis: redis,
		graph: graph,
		placement: placement.Options{
			InitRegions:  cfg.Policy.InitRegions,
			SingleRegion: cfg.Policy.SingleRegion,
			DefaultTTL:   cfg.Policy.DefaultTTL,
			Graph:        graph,
		},
		putFallback: cfg.Policy.PutPolicy,
		getFallback: cfg.Policy.GetPolicy,
	}
}

// PutPolicy returns the active placement policy.
func (s *Store) PutPolicy(ctx context.Context) (placement.Policy, error) {
	name := s.resolve(ctx, putPolicyKey, s.putFallback)
	return placement.Get(name, s.placement)
}

// GetPolicy returns the active transfer policy.
func (s *Store) GetPolicy(ctx context.Context) (transfer.Policy, error) {
	name := s.resolve(ctx, getPolicyKey, s.getFallback)
	return transfer.Get(name, s.graph)
}

// Update validates and persists new policy names. Empty names leave the
// current setting untouched.
func (s *Store) Update(ctx context.Context, putName, getName string) error {
	if putName != "" {
		if _, err := placement.Get(putName, s.placement); err != nil {
			return err
		}
	}
	if getName != "" {
		if _, err := transfer.Get(getName, s.graph); err != nil {
			return err
		}
	}

	if s.redis == nil {
		if putName != "" {
			s.putFallback = putName
		}
		if getName != "" {
			s.getFallback = getName
		}
		return nil
	}

	if putName != "" {
		if err := s.redis.SetString(ctx, putPolicyKey, putName, 0); err != nil {
			return fmt.Errorf("failed to store put policy: %w", err)
		}
	}
	if getName != "" {
		if err := s.redis.SetString(ctx, getPolicyKey, getName, 0); err != nil {
			return fmt.Errorf("failed to store get policy: %w", err)
		}
	}
	return nil
}

func (s *Store) resolve(ctx context.Context, key, fallback string) string {
	if s.redis == nil {
		return fallback
	}
	name, err := s.redis.GetString(ctx, key)
	if err != nil || name == "" {
		if err != nil && !errors.Is(err, infra.ErrCacheMiss) {
			// Redis being down must not take writes down with it.
			return fallback
		}
		return fallback
	}
	return name
}
