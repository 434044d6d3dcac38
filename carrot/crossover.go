package carrot

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// connGene is one connection gene keyed by innovation for crossover
// alignment. Indices are positional within the parent's node order.
type connGene struct {
	weight float64
	from   int
	to     int
	gater  int
}

// connGenes collects every ordinary and self connection of a network as
// innovation-keyed genes.
func connGenes(n *Network) map[int]connGene {
	pos := n.positions()
	genes := make(map[int]connGene, len(n.Connections)+len(n.SelfConns))
	for _, c := range append(append([]*Connection(nil), n.Connections...), n.SelfConns...) {
		gene := connGene{weight: c.Weight, from: pos[c.From], to: pos[c.To], gater: NoGater}
		if c.Gater != NoGater {
			gene.gater = pos[c.Gater]
		}
		genes[innovationKey(gene.from, gene.to)] = gene
	}
	return genes
}

// Crossover recombines two parent networks into an offspring. Parents must
// share input and output sizes. When equal is set, or the parents' scores
// tie, the offspring's node count is drawn uniformly between the parents'
// counts and disjoint genes are inherited from both; otherwise the fitter
// parent decides both.
func Crossover(net1, net2 *Network, equal bool) (*Network, error) {
	return CrossoverRand(net1, net2, equal, nil)
}

// CrossoverRand is Crossover with an explicit random source.
func CrossoverRand(net1, net2 *Network, equal bool, rng *rand.Rand) (*Network, error) {
	if net1.Input != net2.Input || net1.Output != net2.Output {
		return nil, fmt.Errorf("%w: parents disagree on sizes (%dx%d vs %dx%d)",
			ErrSizeMismatch, net1.Input, net1.Output, net2.Input, net2.Output)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	score1 := math.Inf(-1)
	score2 := math.Inf(-1)
	if net1.Score != nil {
		score1 = *net1.Score
	}
	if net2.Score != nil {
		score2 = *net2.Score
	}

	// Offspring node count.
	size1, size2 := len(net1.Nodes), len(net2.Nodes)
	var size int
	switch {
	case equal || score1 == score2:
		lo, hi := size1, size2
		if lo > hi {
			lo, hi = hi, lo
		}
		size = lo + rng.Intn(hi-lo+1)
	case score1 > score2:
		size = size1
	default:
		size = size2
	}

	// The offspring owns a derived source; the caller's rng only drives the
	// inheritance decisions below.
	off := &Network{
		Input:  net1.Input,
		Output: net1.Output,
		rng:    rand.New(rand.NewSource(rng.Int63())),
		byID:   make(map[int]*Node),
	}

	// Node genes. Non-output positions inherit bias/squash/kind from either
	// parent at 50/50, falling back to the other when the chosen parent lacks
	// the position or types it as output; output positions are filled from the
	// corresponding tail positions of the chosen parent.
	output := net1.Output
	for i := 0; i < size; i++ {
		var source *Node
		if i < size-output {
			source = pickNonOutput(rng, net1, net2, i)
		} else {
			tail := size - i
			if rng.Float64() >= 0.5 {
				source = tailNode(net1, tail)
			} else {
				source = tailNode(net2, tail)
			}
		}

		kind := Hidden
		bias := 0.0
		squash := Logistic
		if source != nil {
			kind = source.Kind
			bias = source.Bias
			squash = source.Squash
		}
		// The positional partition always wins over the inherited kind.
		if i < off.Input {
			kind = Input
		} else if i >= size-output {
			kind = Output
		} else if kind == Input || kind == Output {
			kind = Hidden
		}
		off.addNode(newNode(0, kind, bias, squash))
	}

	// Connection genes, aligned by innovation key. Common genes come from a
	// random parent; disjoint and excess genes from the fitter parent, or
	// from both when equal.
	genes1 := connGenes(net1)
	genes2 := connGenes(net2)
	var inherited []connGene
	for key, g1 := range genes1 {
		if g2, ok := genes2[key]; ok {
			if rng.Float64() >= 0.5 {
				inherited = append(inherited, g2)
			} else {
				inherited = append(inherited, g1)
			}
		} else if score1 >= score2 || equal {
			inherited = append(inherited, g1)
		}
	}
	if score2 >= score1 || equal {
		for key, g2 := range genes2 {
			if _, ok := genes1[key]; !ok {
				inherited = append(inherited, g2)
			}
		}
	}

	for _, gene := range inherited {
		if gene.from >= size || gene.to >= size {
			continue
		}
		c, err := off.Connect(off.Nodes[gene.from], off.Nodes[gene.to], gene.weight)
		if err != nil {
			// Two inherited genes can collapse onto the same pair; keep the
			// first.
			continue
		}
		if gene.gater != NoGater && gene.gater < size {
			if err := off.Gate(off.Nodes[gene.gater], c); err != nil {
				return nil, err
			}
		}
	}
	return off, nil
}

func pickNonOutput(rng *rand.Rand, net1, net2 *Network, i int) *Node {
	primary, secondary := net1, net2
	if rng.Float64() >= 0.5 {
		primary, secondary = net2, net1
	}
	if i < len(primary.Nodes) && primary.Nodes[i].Kind != Output {
		return primary.Nodes[i]
	}
	if i < len(secondary.Nodes) && secondary.Nodes[i].Kind != Output {
		return secondary.Nodes[i]
	}
	return nil
}

func tailNode(n *Network, fromEnd int) *Node {
	idx := len(n.Nodes) - fromEnd
	if idx < 0 || idx >= len(n.Nodes) {
		return nil
	}
	return n.Nodes[idx]
}

// Merge composes two networks in series: net1's outputs are wired where
// net2's inputs used to be. net1's output size must equal net2's input size.
// Both parents are left untouched; the result is built from clones.
func Merge(net1, net2 *Network) (*Network, error) {
	if net1.Output != net2.Input {
		return nil, fmt.Errorf("%w: cannot merge %d outputs into %d inputs", ErrSizeMismatch, net1.Output, net2.Input)
	}

	a := net1.Clone()
	b := net2.Clone()

	merged := &Network{
		Input:   a.Input,
		Output:  b.Output,
		Dropout: a.Dropout,
		rng:     a.rng,
		byID:    make(map[int]*Node),
	}

	// net1's nodes first, its former outputs retyped to hidden. Each donor
	// keeps its own id map: both clones number their ids from zero, so a
	// shared map would collide.
	idMapA := make(map[int]int, len(a.Nodes))
	for _, node := range a.Nodes {
		oldID := node.ID
		if node.Kind == Output {
			node.Kind = Hidden
		}
		merged.adoptNode(node)
		idMapA[oldID] = node.ID
	}

	// net2's input nodes are dropped; connections leaving them are rerouted
	// to net1's former outputs by mirrored index.
	aOutputs := merged.Nodes[len(merged.Nodes)-net1.Output:]
	idMapB := make(map[int]int, len(b.Nodes))
	for i, node := range b.Nodes {
		if node.Kind == Input {
			idMapB[node.ID] = aOutputs[i].ID
			continue
		}
		oldID := node.ID
		merged.adoptNode(node)
		idMapB[oldID] = node.ID
	}

	remap := func(idMap map[int]int, conns []*Connection, self bool) {
		for _, c := range conns {
			c.From = idMap[c.From]
			c.To = idMap[c.To]
			if c.Gater != NoGater {
				c.Gater = idMap[c.Gater]
			}
			if self {
				merged.SelfConns = append(merged.SelfConns, c)
			} else {
				merged.Connections = append(merged.Connections, c)
			}
			if c.Gater != NoGater {
				merged.Gates = append(merged.Gates, c)
			}
		}
	}
	remap(idMapA, a.Connections, false)
	remap(idMapA, a.SelfConns, true)
	remap(idMapB, b.Connections, false)
	remap(idMapB, b.SelfConns, true)

	merged.rebuildAdjacency()
	return merged, nil
}

// adoptNode moves a node from a donor clone into the network under a fresh
// id, clearing adjacency for a later rebuild.
func (n *Network) adoptNode(node *Node) {
	node.In = nil
	node.Out = nil
	node.Gated = nil
	node.Self = nil
	n.addNode(node)
}

// rebuildAdjacency recomputes every node's in/out/gated/self lists from the
// network's connection sets.
func (n *Network) rebuildAdjacency() {
	for _, c := range n.Connections {
		n.byID[c.From].Out = append(n.byID[c.From].Out, c)
		n.byID[c.To].In = append(n.byID[c.To].In, c)
	}
	for _, c := range n.SelfConns {
		n.byID[c.From].Self = c
	}
	for _, c := range n.Gates {
		n.byID[c.Gater].Gated = append(n.byID[c.Gater].Gated, c)
	}
}
