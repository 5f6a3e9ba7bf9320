package transfer

import (
	"fmt"

	"github.com/tnqbao/gau-store-server/entity"
	"github.com/tnqbao/gau-store-server/schema"
	"github.com/tnqbao/gau-store-server/transfergraph"
)

// unknownLatency stands in for region pairs the profile never measured.
const unknownLatency = 0.70

// Policy picks which ready physical copy a reader should fetch from.
// Candidates are guaranteed non-empty and already filtered to ready.
type Policy interface {
	Get(req *schema.LocateObjectRequest, locators []entity.PhysicalObjectLocator) *entity.PhysicalObjectLocator
	Name() string
}

// Get resolves a transfer policy by name; the name set is closed.
func Get(name string, graph *transfergraph.Graph) (Policy, error) {
	switch name {
	case "direct":
		return &direct{}, nil
	case "closest":
		return &closest{graph: graph}, nil
	case "cheapest":
		return &cheapest{graph: graph}, nil
	default:
		return nil, fmt.Errorf("unknown transfer policy name: %s", name)
	}
}

// direct takes the first candidate. Deterministic, graph-free, used for
// single-region deployments.
type direct struct{}

func (p *direct) Get(req *schema.LocateObjectRequest, locators []entity.PhysicalObjectLocator) *entity.PhysicalObjectLocator {
	return &locators[0]
}

func (p *direct) Name() string { return "direct" }

// closest minimizes latency from the reader's region to the copy.
type closest struct {
	graph *transfergraph.Graph
}

func (p *closest) Get(req *schema.LocateObjectRequest, locators []entity.PhysicalObjectLocator) *entity.PhysicalObjectLocator {
	best := &locators[0]
	bestLatency := p.latency(req.ClientFromRegion, best.LocationTag)
	for i := 1; i < len(locators); i++ {
		if l := p.latency(req.ClientFromRegion, locators[i].LocationTag); l < bestLatency {
			best = &locators[i]
			bestLatency = l
		}
	}
	return best
}

func (p *closest) latency(src, dst string) float64 {
	if p.graph != nil {
		if latency, ok := p.graph.Latency(src, dst); ok {
			return latency
		}
	}
	return unknownLatency
}

func (p *closest) Name() string { return "closest" }

// cheapest returns the reader's own copy when one exists (zero egress),
// otherwise the candidate with the lowest network cost, ties broken by
// latency.
type cheapest struct {
	graph *transfergraph.Graph
}

func (p *cheapest) Get(req *schema.LocateObjectRequest, locators []entity.PhysicalObjectLocator) *entity.PhysicalObjectLocator {
	for i := range locators {
		if locators[i].LocationTag == req.ClientFromRegion {
			return &locators[i]
		}
	}

	best := &locators[0]
	bestCost, bestLatency := p.edge(req.ClientFromRegion, best.LocationTag)
	for i := 1; i < len(locators); i++ {
		cost, latency := p.edge(req.ClientFromRegion, locators[i].LocationTag)
		if cost < bestCost || (cost == bestCost && latency < bestLatency) {
			best = &locators[i]
			bestCost, bestLatency = cost, latency
		}
	}
	return best
}

func (p *cheapest) edge(src, dst string) (cost, latency float64) {
	latency = unknownLatency
	if p.graph == nil {
		return 0, latency
	}
	cost, _ = p.graph.Cost(src, dst)
	if l, ok := p.graph.Latency(src, dst); ok {
		latency = l
	}
	return cost, latency
}

func (p *cheapest) Name() string { return "cheapest" }
