package placement

import (
	"fmt"

	"github.com/tnqbao/gau-store-server/schema"
	"github.com/tnqbao/gau-store-server/transfergraph"
)

// NeverExpire disables TTL-based eviction for a copy.
const NeverExpire int64 = -1

// Policy decides which regions an upload goes to and the TTL its copies
// carry. Place returns the target region tags in order; GetTTL may consult
// the transfer graph for cost-adaptive variants, src/dst being the copy's
// region and the reader's region.
type Policy interface {
	Place(req *schema.StartUploadRequest) []string
	Name() string
	GetTTL(src, dst string) int64
}

// Options carries the process-wide placement inputs: the initialized region
// set, the single-region target, the default TTL and the cost graph.
type Options struct {
	InitRegions  []string
	SingleRegion string
	DefaultTTL   int64
	Graph        *transfergraph.Graph
}

// Get resolves a placement policy by name. The name set is closed; aliases
// ("write_local" for always_evict, "push" for replicate_all) are accepted at
// this boundary only.
func Get(name string, opts Options) (Policy, error) {
	switch name {
	case "always_evict", "write_local":
		return &alwaysEvict{defaultTTL: opts.DefaultTTL}, nil
	case "always_store":
		return &alwaysStore{}, nil
	case "fixed_ttl":
		return &fixedTTL{ttl: opts.DefaultTTL}, nil
	case "single_region":
		for _, region := range opts.InitRegions {
			if region == opts.SingleRegion {
				return &singleRegion{region: opts.SingleRegion}, nil
			}
		}
		return nil, fmt.Errorf("single_region target %q is not an initialized region", opts.SingleRegion)
	case "push", "replicate_all":
		return &replicateAll{initRegions: opts.InitRegions}, nil
	case "t_even":
		return &tEven{defaultTTL: opts.DefaultTTL, graph: opts.Graph}, nil
	default:
		return nil, fmt.Errorf("unknown placement policy name: %s", name)
	}
}

// alwaysEvict writes locally and relies on the expiry sweep to drop the
// copy after the default TTL; readers elsewhere pull a fresh cached copy.
type alwaysEvict struct {
	defaultTTL int64
}

func (p *alwaysEvict) Place(req *schema.StartUploadRequest) []string {
	return []string{req.ClientFromRegion}
}

func (p *alwaysEvict) Name() string { return "always_evict" }

func (p *alwaysEvict) GetTTL(src, dst string) int64 { return p.defaultTTL }

// alwaysStore writes locally and keeps every copy forever.
type alwaysStore struct{}

func (p *alwaysStore) Place(req *schema.StartUploadRequest) []string {
	return []string{req.ClientFromRegion}
}

func (p *alwaysStore) Name() string { return "always_store" }

func (p *alwaysStore) GetTTL(src, dst string) int64 { return NeverExpire }

type fixedTTL struct {
	ttl int64
}

func (p *fixedTTL) Place(req *schema.StartUploadRequest) []string {
	return []string{req.ClientFromRegion}
}

func (p *fixedTTL) Name() string { return "fixed_ttl" }

func (p *fixedTTL) GetTTL(src, dst string) int64 { return p.ttl }

// singleRegion sends every write to one configured region, which is always
// primary. Copies there are authoritative, so they never expire.
type singleRegion struct {
	region string
}

func (p *singleRegion) Place(req *schema.StartUploadRequest) []string {
	return []string{p.region}
}

func (p *singleRegion) Name() string { return "single_region" }

func (p *singleRegion) GetTTL(src, dst string) int64 { return NeverExpire }

// replicateAll fans the write out to every initialized region. The bucket
// configuration elects the primary ahead of time; replicas are permanent.
type replicateAll struct {
	initRegions []string
}

func (p *replicateAll) Place(req *schema.StartUploadRequest) []string {
	return p.initRegions
}

func (p *replicateAll) Name() string { return "replicate_all" }

func (p *replicateAll) GetTTL(src, dst string) int64 { return NeverExpire }

// tEven balances the cost of re-fetching an evicted copy against the cost
// of keeping it warm: TTL = egress cost per GB / storage cost per GB-hour,
// in seconds.
type tEven struct {
	defaultTTL int64
	graph      *transfergraph.Graph
}

// fallbackNetworkCost substitutes for a measured zero egress cost so the
// formula never collapses the TTL to zero.
const fallbackNetworkCost = 0.056

func (p *tEven) Place(req *schema.StartUploadRequest) []string {
	return []string{req.ClientFromRegion}
}

func (p *tEven) Name() string { return "t_even" }

func (p *tEven) GetTTL(src, dst string) int64 {
	if p.graph == nil || !p.graph.HasEdge(src, dst) || !p.graph.HasNode(dst) {
		return p.defaultTTL
	}
	networkCost, _ := p.graph.Cost(src, dst)
	if networkCost == 0 {
		networkCost = fallbackNetworkCost
	}
	storageCost, ok := p.graph.StorageCost(dst)
	if !ok || storageCost == 0 {
		return p.defaultTTL
	}
	return int64(networkCost / storageCost * 60 * 60)
}
