package transfergraph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default per-request prices applied when a profile omits them, and the
// latency assumed for a local (self-edge) read.
const (
	DefaultPriceGet     = 4.4e-07
	DefaultPricePut     = 5.5e-06
	DefaultPriceStorage = 0.023
	SelfEdgeLatency     = 0.70
)

// Graph is the read-only cost model over regions: nodes carry storage
// pricing, directed edges carry network cost, throughput and latency.
// It is built once at startup and shared by reference; it is never
// mutated afterwards, so concurrent reads need no locking.
type Graph struct {
	nodes map[string]Node
	edges map[string]map[string]Edge
}

type Node struct {
	PriceStorage float64 `yaml:"price_storage"`
	PriceGet     float64 `yaml:"price_get"`
	PricePut     float64 `yaml:"price_put"`
}

type Edge struct {
	Cost       float64 `yaml:"cost"`
	Throughput float64 `yaml:"throughput"`
	Latency    float64 `yaml:"latency"`
}

type profile struct {
	Regions map[string]Node `yaml:"regions"`
	Links   []struct {
		Src        string  `yaml:"src"`
		Dst        string  `yaml:"dst"`
		Cost       float64 `yaml:"cost"`
		Throughput float64 `yaml:"throughput"`
		Latency    float64 `yaml:"latency"`
	} `yaml:"links"`
}

// New builds an empty graph. Regions and links are added with AddNode and
// AddEdge; tests and the profile loader are the only writers.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string]map[string]Edge),
	}
}

// LoadProfile reads a YAML cost profile and builds the graph. Every region
// gets a zero-cost self edge with the local-read latency so transfer
// policies never special-case "already here".
func LoadProfile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer graph profile: %w", err)
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse transfer graph profile: %w", err)
	}

	g := New()
	for tag, node := range p.Regions {
		g.AddNode(tag, node)
	}
	for _, link := range p.Links {
		g.AddEdge(link.Src, link.Dst, Edge{
			Cost:       link.Cost,
			Throughput: link.Throughput,
			Latency:    link.Latency,
		})
	}
	return g, nil
}

func (g *Graph) AddNode(tag string, node Node) {
	if node.PriceStorage == 0 {
		node.PriceStorage = DefaultPriceStorage
	}
	if node.PriceGet == 0 {
		node.PriceGet = DefaultPriceGet
	}
	if node.PricePut == 0 {
		node.PricePut = DefaultPricePut
	}
	g.nodes[tag] = node
	if _, ok := g.edges[tag]; !ok {
		g.edges[tag] = make(map[string]Edge)
	}
	if _, ok := g.edges[tag][tag]; !ok {
		g.edges[tag][tag] = Edge{Cost: 0, Latency: SelfEdgeLatency}
	}
}

func (g *Graph) AddEdge(src, dst string, edge Edge) {
	if _, ok := g.edges[src]; !ok {
		g.edges[src] = make(map[string]Edge)
	}
	g.edges[src][dst] = edge
}

func (g *Graph) HasNode(tag string) bool {
	_, ok := g.nodes[tag]
	return ok
}

func (g *Graph) HasEdge(src, dst string) bool {
	if _, ok := g.edges[src]; !ok {
		return false
	}
	_, ok := g.edges[src][dst]
	return ok
}

// Cost returns the network egress cost per GB from src to dst.
func (g *Graph) Cost(src, dst string) (float64, bool) {
	if !g.HasEdge(src, dst) {
		return 0, false
	}
	return g.edges[src][dst].Cost, true
}

// Latency returns the measured latency from src to dst, or ok=false when
// the pair was never profiled.
func (g *Graph) Latency(src, dst string) (float64, bool) {
	if !g.HasEdge(src, dst) {
		return 0, false
	}
	return g.edges[src][dst].Latency, true
}

// StorageCost returns the per-GB-hour storage price of a region.
func (g *Graph) StorageCost(tag string) (float64, bool) {
	node, ok := g.nodes[tag]
	if !ok {
		return 0, false
	}
	return node.PriceStorage, true
}
