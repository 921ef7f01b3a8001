// Package layout assigns canvas positions to plan graphs using a
// layered arrangement: every node sits one rank past its furthest
// predecessor, and ranks are centered against the widest one.
package layout

import (
	"errors"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/planward/planward/pkg/models"
)

// Direction sets which way ranks advance across the canvas.
type Direction string

const (
	TopToBottom Direction = "TB"
	LeftToRight Direction = "LR"
)

// Config holds the fixed geometry of a layout run. All distances are
// canvas units. Zero values fall back to the defaults.
type Config struct {
	Direction  Direction
	NodeWidth  float64
	NodeHeight float64
	RankGap    float64 // space between consecutive ranks
	NodeGap    float64 // space between neighbors within a rank
}

// DefaultConfig returns the geometry used when callers pass a zero
// Config: top-to-bottom flow with boxes sized for short task labels.
func DefaultConfig() Config {
	return Config{
		Direction:  TopToBottom,
		NodeWidth:  180,
		NodeHeight: 48,
		RankGap:    80,
		NodeGap:    40,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.Direction == "" {
		c.Direction = defaults.Direction
	}

	if c.NodeWidth <= 0 {
		c.NodeWidth = defaults.NodeWidth
	}

	if c.NodeHeight <= 0 {
		c.NodeHeight = defaults.NodeHeight
	}

	if c.RankGap <= 0 {
		c.RankGap = defaults.RankGap
	}

	if c.NodeGap <= 0 {
		c.NodeGap = defaults.NodeGap
	}

	return c
}

// Apply computes a layered layout and returns copies of the nodes with
// positions assigned; the input is never mutated. Placement works in
// center coordinates and translates to top-left by half a box at the
// end, which is the convention the canvas expects.
//
// Zero nodes yield an empty result. Self-loops, repeated edges, and
// edges naming unknown nodes are skipped for placement purposes.
// Cycles are tolerated: members keep the rank of their longest acyclic
// predecessor chain.
func Apply(nodes []*models.GraphNode, edges []*models.GraphEdge, config Config) []*models.GraphNode {
	if len(nodes) == 0 {
		return []*models.GraphNode{}
	}

	config = config.withDefaults()

	index := make(map[string]int64, len(nodes))
	dg := simple.NewDirectedGraph()

	for i, node := range nodes {
		index[node.ID] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}

	for _, edge := range edges {
		from, okFrom := index[edge.Source]
		to, okTo := index[edge.Target]

		if !okFrom || !okTo || from == to || dg.HasEdgeFromTo(from, to) {
			continue
		}

		dg.SetEdge(dg.NewEdge(dg.Node(from), dg.Node(to)))
	}

	ranks := make([]int, len(nodes))
	for i := range ranks {
		ranks[i] = -1
	}

	maxRank := 0

	for _, node := range flowOrder(dg) {
		id := node.ID()
		rank := 0

		preds := dg.To(id)
		for preds.Next() {
			if r := ranks[preds.Node().ID()]; r >= 0 && r+1 > rank {
				rank = r + 1
			}
		}

		ranks[id] = rank
		if rank > maxRank {
			maxRank = rank
		}
	}

	rows := make([][]int, maxRank+1)

	for i := range nodes {
		rank := ranks[i]
		if rank < 0 {
			rank = 0
		}

		rows[rank] = append(rows[rank], i)
	}

	boxRank, boxCross := config.NodeHeight, config.NodeWidth
	if config.Direction == LeftToRight {
		boxRank, boxCross = config.NodeWidth, config.NodeHeight
	}

	slotStep := boxCross + config.NodeGap
	rankStep := boxRank + config.RankGap

	maxExtent := 0.0

	for _, row := range rows {
		if extent := rowExtent(len(row), boxCross, config.NodeGap); extent > maxExtent {
			maxExtent = extent
		}
	}

	placed := make([]*models.GraphNode, len(nodes))
	for i, node := range nodes {
		clone := *node
		placed[i] = &clone
	}

	for rank, row := range rows {
		start := (maxExtent - rowExtent(len(row), boxCross, config.NodeGap)) / 2
		rankCenter := float64(rank)*rankStep + boxRank/2

		for slot, i := range row {
			crossCenter := start + float64(slot)*slotStep + boxCross/2

			x, y := crossCenter, rankCenter
			if config.Direction == LeftToRight {
				x, y = rankCenter, crossCenter
			}

			placed[i].Position = models.Position{
				X: x - config.NodeWidth/2,
				Y: y - config.NodeHeight/2,
			}
		}
	}

	return placed
}

func rowExtent(count int, box, gap float64) float64 {
	if count == 0 {
		return 0
	}

	return float64(count)*box + float64(count-1)*gap
}

// flowOrder returns every node in dependency-first order. When the
// graph has cycles, the sort reports each cyclic component in place of
// a nil slot; those members are spliced back in so ranking still sees
// every node exactly once.
func flowOrder(dg *simple.DirectedGraph) []graph.Node {
	sorted, err := topo.SortStabilized(dg, nil)
	if err != nil {
		var cyclic topo.Unorderable
		if errors.As(err, &cyclic) {
			sorted = spliceCycles(sorted, cyclic)
		}
	}

	nodes := make([]graph.Node, 0, len(sorted))

	for _, node := range sorted {
		if node != nil {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

func spliceCycles(sorted []graph.Node, cyclic topo.Unorderable) []graph.Node {
	spliced := make([]graph.Node, 0, len(sorted))
	next := 0

	for _, node := range sorted {
		if node != nil {
			spliced = append(spliced, node)
			continue
		}

		if next < len(cyclic) {
			spliced = append(spliced, cyclic[next]...)
			next++
		}
	}

	return spliced
}
