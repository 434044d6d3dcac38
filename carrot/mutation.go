package carrot

// MutationKind enumerates the structural mutation operators. Operators are
// closed tagged variants with their parameters as fields, dispatched through
// an explicit table; there is no identity-compared shared state.
type MutationKind int

const (
	AddNode MutationKind = iota
	SubNode
	AddConn
	SubConn
	ModWeight
	ModBias
	ModActivation
	AddSelfConn
	SubSelfConn
	AddGate
	SubGate
	AddBackConn
	SubBackConn
	SwapNodes

	mutationKindCount
)

var mutationKindNames = [mutationKindCount]string{
	AddNode:       "ADD_NODE",
	SubNode:       "SUB_NODE",
	AddConn:       "ADD_CONN",
	SubConn:       "SUB_CONN",
	ModWeight:     "MOD_WEIGHT",
	ModBias:       "MOD_BIAS",
	ModActivation: "MOD_ACTIVATION",
	AddSelfConn:   "ADD_SELF_CONN",
	SubSelfConn:   "SUB_SELF_CONN",
	AddGate:       "ADD_GATE",
	SubGate:       "SUB_GATE",
	AddBackConn:   "ADD_BACK_CONN",
	SubBackConn:   "SUB_BACK_CONN",
	SwapNodes:     "SWAP_NODES",
}

// String returns the operator's configuration name.
func (k MutationKind) String() string {
	if k < 0 || k >= mutationKindCount {
		return "MUTATION(?)"
	}
	return mutationKindNames[k]
}

// MutationKindByName resolves a configuration name to an operator kind.
func MutationKindByName(name string) (MutationKind, bool) {
	for k := MutationKind(0); k < mutationKindCount; k++ {
		if mutationKindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// Mutation is one structural mutation operator together with its parameters.
// Zero-value parameters are filled in by NewMutation.
type Mutation struct {
	Kind MutationKind

	// Min and Max bound the perturbation drawn by ModWeight and ModBias.
	Min, Max float64

	// Allowed lists the squash functions AddNode and ModActivation may
	// assign.
	Allowed []Squash

	// MutateOutput permits ModActivation and SwapNodes to touch output
	// nodes.
	MutateOutput bool

	// KeepGates makes SubNode redistribute displaced gates instead of
	// dropping them.
	KeepGates bool
}

// NewMutation returns the operator with its default parameters.
func NewMutation(kind MutationKind) Mutation {
	m := Mutation{Kind: kind, Min: -1, Max: 1, MutateOutput: true, KeepGates: true}
	switch kind {
	case AddNode, ModActivation:
		m.Allowed = Squashes()
	}
	return m
}

// FeedforwardMutations is the operator set safe for strictly feedforward
// networks: no recurrent or self connections and no gates.
func FeedforwardMutations() []Mutation {
	kinds := []MutationKind{AddNode, SubNode, AddConn, SubConn, ModWeight, ModBias, ModActivation, SwapNodes}
	return mutationsOf(kinds)
}

// AllMutations is the complete operator set.
func AllMutations() []Mutation {
	kinds := make([]MutationKind, 0, mutationKindCount)
	for k := MutationKind(0); k < mutationKindCount; k++ {
		kinds = append(kinds, k)
	}
	return mutationsOf(kinds)
}

func mutationsOf(kinds []MutationKind) []Mutation {
	out := make([]Mutation, len(kinds))
	for i, k := range kinds {
		out[i] = NewMutation(k)
	}
	return out
}

// Possible reports whether the operator has at least one valid candidate on
// the network. An operator without candidates is a no-op, never an error.
func (m Mutation) Possible(n *Network) bool {
	switch m.Kind {
	case AddNode:
		return len(n.Connections) > 0
	case SubNode:
		return len(removableNodes(n)) > 0
	case AddConn:
		return len(forwardPairs(n)) > 0
	case SubConn:
		return len(severableConns(n, true)) > 0
	case AddBackConn:
		return len(backwardPairs(n)) > 0
	case SubBackConn:
		return len(severableConns(n, false)) > 0
	case ModWeight:
		return len(n.Connections)+len(n.SelfConns) > 0
	case ModBias:
		return len(n.Nodes) > n.Input
	case ModActivation:
		// A single-entry allowed set leaves nothing to change to.
		if len(m.Allowed) == 1 {
			return false
		}
		return len(modActivationNodes(n, m.MutateOutput)) > 0
	case AddSelfConn:
		return len(selfConnCandidates(n)) > 0
	case SubSelfConn:
		return len(n.SelfConns) > 0
	case AddGate:
		return len(ungatedConns(n)) > 0
	case SubGate:
		return len(n.Gates) > 0
	case SwapNodes:
		return len(swappableNodes(n, m.MutateOutput)) >= 2
	}
	return false
}

// Apply samples uniformly among the operator's candidates and applies the
// mutation. It reports false, without error, when no candidate exists.
func (m Mutation) Apply(n *Network) bool {
	rng := n.rng
	switch m.Kind {
	case AddNode:
		if len(n.Connections) == 0 {
			return false
		}
		c := n.Connections[rng.Intn(len(n.Connections))]
		gater := c.Gater
		from := n.node(c.From)
		to := n.node(c.To)
		if err := n.Disconnect(from, to); err != nil {
			return false
		}

		// Splice the new hidden node just before the removed connection's
		// target, but never inside the output partition.
		pos := n.position(to)
		if limit := len(n.Nodes) - n.Output; pos > limit {
			pos = limit
		}
		allowed := m.Allowed
		if len(allowed) == 0 {
			allowed = Squashes()
		}
		node := n.insertNode(newNode(0, Hidden, 0, allowed[rng.Intn(len(allowed))]), pos)

		first, err := n.Connect(from, node)
		if err != nil {
			return false
		}
		second, err := n.Connect(node, to, c.Weight)
		if err != nil {
			return false
		}
		if gater != NoGater {
			// The displaced gate moves onto one of the two halves at random.
			target := first
			if rng.Float64() >= 0.5 {
				target = second
			}
			if err := n.Gate(n.node(gater), target); err != nil {
				return false
			}
		}
		return true

	case SubNode:
		candidates := removableNodes(n)
		if len(candidates) == 0 {
			return false
		}
		return n.remove(candidates[rng.Intn(len(candidates))], m.KeepGates) == nil

	case AddConn:
		pairs := forwardPairs(n)
		if len(pairs) == 0 {
			return false
		}
		p := pairs[rng.Intn(len(pairs))]
		_, err := n.Connect(p[0], p[1])
		return err == nil

	case SubConn:
		candidates := severableConns(n, true)
		if len(candidates) == 0 {
			return false
		}
		c := candidates[rng.Intn(len(candidates))]
		return n.Disconnect(n.node(c.From), n.node(c.To)) == nil

	case AddBackConn:
		pairs := backwardPairs(n)
		if len(pairs) == 0 {
			return false
		}
		p := pairs[rng.Intn(len(pairs))]
		_, err := n.Connect(p[0], p[1])
		return err == nil

	case SubBackConn:
		candidates := severableConns(n, false)
		if len(candidates) == 0 {
			return false
		}
		c := candidates[rng.Intn(len(candidates))]
		return n.Disconnect(n.node(c.From), n.node(c.To)) == nil

	case ModWeight:
		all := append(append([]*Connection(nil), n.Connections...), n.SelfConns...)
		if len(all) == 0 {
			return false
		}
		c := all[rng.Intn(len(all))]
		c.Weight += rng.Float64()*(m.Max-m.Min) + m.Min
		return true

	case ModBias:
		if len(n.Nodes) <= n.Input {
			return false
		}
		node := n.Nodes[n.Input+rng.Intn(len(n.Nodes)-n.Input)]
		node.Bias += rng.Float64()*(m.Max-m.Min) + m.Min
		return true

	case ModActivation:
		candidates := modActivationNodes(n, m.MutateOutput)
		if len(candidates) == 0 {
			return false
		}
		node := candidates[rng.Intn(len(candidates))]
		allowed := m.Allowed
		if len(allowed) == 0 {
			allowed = Squashes()
		}
		if len(allowed) < 2 {
			return false
		}
		// Pick an allowed squash different from the current one.
		current := -1
		for i, s := range allowed {
			if s == node.Squash {
				current = i
				break
			}
		}
		if current < 0 {
			node.Squash = allowed[rng.Intn(len(allowed))]
		} else {
			node.Squash = allowed[(current+1+rng.Intn(len(allowed)-1))%len(allowed)]
		}
		return true

	case AddSelfConn:
		candidates := selfConnCandidates(n)
		if len(candidates) == 0 {
			return false
		}
		node := candidates[rng.Intn(len(candidates))]
		_, err := n.Connect(node, node)
		return err == nil

	case SubSelfConn:
		if len(n.SelfConns) == 0 {
			return false
		}
		c := n.SelfConns[rng.Intn(len(n.SelfConns))]
		node := n.node(c.From)
		return n.Disconnect(node, node) == nil

	case AddGate:
		candidates := ungatedConns(n)
		if len(candidates) == 0 {
			return false
		}
		c := candidates[rng.Intn(len(candidates))]
		gater := n.Nodes[n.Input+rng.Intn(len(n.Nodes)-n.Input)]
		return n.Gate(gater, c) == nil

	case SubGate:
		if len(n.Gates) == 0 {
			return false
		}
		return n.Ungate(n.Gates[rng.Intn(len(n.Gates))]) == nil

	case SwapNodes:
		candidates := swappableNodes(n, m.MutateOutput)
		if len(candidates) < 2 {
			return false
		}
		i := rng.Intn(len(candidates))
		j := rng.Intn(len(candidates) - 1)
		if j >= i {
			j++
		}
		a, b := candidates[i], candidates[j]
		a.Bias, b.Bias = b.Bias, a.Bias
		a.Squash, b.Squash = b.Squash, a.Squash
		return true
	}
	return false
}

// removableNodes lists hidden and constant nodes, the only kinds SubNode may
// delete.
func removableNodes(n *Network) []*Node {
	var out []*Node
	for _, node := range n.Nodes {
		if node.Kind == Hidden || node.Kind == Constant {
			out = append(out, node)
		}
	}
	return out
}

// forwardPairs lists unconnected (from, to) pairs where to comes after from
// in activation order and beyond the input partition.
func forwardPairs(n *Network) [][2]*Node {
	var out [][2]*Node
	for i := 0; i < len(n.Nodes); i++ {
		from := n.Nodes[i]
		start := i + 1
		if start < n.Input {
			start = n.Input
		}
		for j := start; j < len(n.Nodes); j++ {
			to := n.Nodes[j]
			if !from.isProjectingTo(to) {
				out = append(out, [2]*Node{from, to})
			}
		}
	}
	return out
}

// backwardPairs lists unconnected pairs that run against activation order,
// i.e. recurrent candidates.
func backwardPairs(n *Network) [][2]*Node {
	var out [][2]*Node
	for i := n.Input; i < len(n.Nodes); i++ {
		from := n.Nodes[i]
		for j := n.Input; j < i; j++ {
			to := n.Nodes[j]
			if !from.isProjectingTo(to) {
				out = append(out, [2]*Node{from, to})
			}
		}
	}
	return out
}

// severableConns lists connections whose removal strands neither endpoint:
// the source keeps another outgoing edge and the target another incoming one.
// forward selects connections running with activation order, otherwise
// against it.
func severableConns(n *Network, forward bool) []*Connection {
	pos := n.positions()
	var out []*Connection
	for _, c := range n.Connections {
		from := n.node(c.From)
		to := n.node(c.To)
		if len(from.Out) <= 1 || len(to.In) <= 1 {
			continue
		}
		if forward == (pos[c.To] > pos[c.From]) {
			out = append(out, c)
		}
	}
	return out
}

func modActivationNodes(n *Network, mutateOutput bool) []*Node {
	if !mutateOutput && len(n.Nodes) == n.Input+n.Output {
		return nil
	}
	var out []*Node
	for _, node := range n.Nodes {
		if node.Kind == Input {
			continue
		}
		if !mutateOutput && node.Kind == Output {
			continue
		}
		out = append(out, node)
	}
	return out
}

func selfConnCandidates(n *Network) []*Node {
	var out []*Node
	for _, node := range n.Nodes[n.Input:] {
		if node.Self == nil {
			out = append(out, node)
		}
	}
	return out
}

func ungatedConns(n *Network) []*Connection {
	var out []*Connection
	for _, c := range append(append([]*Connection(nil), n.Connections...), n.SelfConns...) {
		if c.Gater == NoGater {
			out = append(out, c)
		}
	}
	return out
}

func swappableNodes(n *Network, mutateOutput bool) []*Node {
	var out []*Node
	for _, node := range n.Nodes {
		if node.Kind == Input {
			continue
		}
		if !mutateOutput && node.Kind == Output {
			continue
		}
		out = append(out, node)
	}
	return out
}
