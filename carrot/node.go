package carrot

// NodeKind classifies a node's role in the network. The kind of a node is
// tied to its position: the first Input nodes of the ordered sequence are
// inputs, the trailing Output nodes are outputs.
type NodeKind int

const (
	Input NodeKind = iota
	Hidden
	Output
	Constant
)

// String returns the serialization name of the kind.
func (k NodeKind) String() string {
	switch k {
	case Input:
		return "input"
	case Hidden:
		return "hidden"
	case Output:
		return "output"
	case Constant:
		return "constant"
	}
	return "unknown"
}

func nodeKindByName(name string) (NodeKind, bool) {
	switch name {
	case "input":
		return Input, true
	case "hidden":
		return Hidden, true
	case "output":
		return Output, true
	case "constant":
		return Constant, true
	}
	return 0, false
}

// Node is a computational unit with activation state and bias. Adjacency is
// kept as lists of connections owned by the network; connections reference
// nodes by id, never the other way around, so the graph has no cycles of
// ownership.
type Node struct {
	ID     int
	Kind   NodeKind
	Bias   float64
	Squash Squash

	// Activation is the last computed output, State the last pre-squash sum.
	// Old holds the previous tick's state for recurrent self-loops.
	Activation float64
	State      float64
	Old        float64

	// Mask is the dropout multiplier in [0, 1]; 1 means the node is active.
	Mask float64

	// Derivative is the squash derivative at the last computed state, kept
	// for the backward pass.
	Derivative float64

	In    []*Connection
	Out   []*Connection
	Gated []*Connection
	Self  *Connection

	errResponsibility float64
	errProjected      float64
	errGated          float64

	prevDeltaBias  float64
	totalDeltaBias float64
}

func newNode(id int, kind NodeKind, bias float64, squash Squash) *Node {
	return &Node{ID: id, Kind: kind, Bias: bias, Squash: squash, Mask: 1}
}

// selfGainWeight returns the gain*weight factor of the self-connection, or 0
// when the node has none.
func (node *Node) selfGainWeight(net *Network) float64 {
	if node.Self == nil {
		return 0
	}
	return net.gain(node.Self) * node.Self.Weight
}

// activate computes the node's activation for this tick and updates the
// eligibility and extended traces the backward pass depends on. Sources that
// have not been recomputed yet this tick contribute their previous
// activation, which is what makes recurrent connections legal.
func (node *Node) activate(net *Network) float64 {
	node.Old = node.State

	node.State = node.Bias + node.selfGainWeight(net)*node.Old
	for _, c := range node.In {
		node.State += net.node(c.From).Activation * c.Weight * net.gain(c)
	}

	node.Activation = node.Squash.Fn(node.State) * node.Mask
	node.Derivative = node.Squash.Derivative(node.State)

	// Influence of this node on every node it gates, accumulated per target.
	// A gated self-loop contributes the target's previous state once.
	inflIDs := make([]int, 0, len(node.Gated))
	inflVals := make([]float64, 0, len(node.Gated))
	for _, c := range node.Gated {
		to := net.node(c.To)
		slot := -1
		for i, id := range inflIDs {
			if id == c.To {
				slot = i
				break
			}
		}
		if slot < 0 {
			v := 0.0
			if to.Self != nil && to.Self.Gater == node.ID {
				v = to.Old
			}
			inflIDs = append(inflIDs, c.To)
			inflVals = append(inflVals, v+c.Weight*net.node(c.From).Activation)
		} else {
			inflVals[slot] += c.Weight * net.node(c.From).Activation
		}
	}

	sgw := node.selfGainWeight(net)
	for _, c := range node.In {
		c.Eligibility = sgw*c.Eligibility + net.node(c.From).Activation*net.gain(c)

		for i, gid := range inflIDs {
			gated := net.node(gid)
			slot := c.xtrace(gid)
			if slot < 0 {
				c.xtraceIDs = append(c.xtraceIDs, gid)
				c.xtraceVals = append(c.xtraceVals, node.Derivative*c.Eligibility*inflVals[i])
			} else {
				c.xtraceVals[slot] = gated.selfGainWeight(net)*c.xtraceVals[slot] +
					node.Derivative*c.Eligibility*inflVals[i]
			}
		}
	}

	return node.Activation
}

// noTraceActivate performs the same numeric computation as activate but skips
// all trace bookkeeping. Cheaper; use for inference.
func (node *Node) noTraceActivate(net *Network) float64 {
	node.Old = node.State
	node.State = node.Bias + node.selfGainWeight(net)*node.Old
	for _, c := range node.In {
		node.State += net.node(c.From).Activation * c.Weight * net.gain(c)
	}
	node.Activation = node.Squash.Fn(node.State) * node.Mask
	return node.Activation
}

// propagate runs the local gradient rule backward through the node. When
// target is non-nil the node is treated as an output with error
// target-activation; otherwise the error responsibility is accumulated from
// everything the node feeds, projected and gated paths included. Deltas are
// applied to weights and bias only when update is true; otherwise they
// accumulate for a later mini-batch update.
func (node *Node) propagate(net *Network, rate, momentum float64, update bool, target *float64) {
	if target != nil {
		node.errResponsibility = *target - node.Activation
		node.errProjected = node.errResponsibility
		node.errGated = 0
	} else {
		err := 0.0
		for _, c := range node.Out {
			err += net.node(c.To).errResponsibility * c.Weight * net.gain(c)
		}
		node.errProjected = node.Derivative * err

		err = 0.0
		for _, c := range node.Gated {
			to := net.node(c.To)
			influence := 0.0
			if to.Self != nil && to.Self.Gater == node.ID {
				influence = to.Old
			}
			influence += c.Weight * net.node(c.From).Activation
			err += to.errResponsibility * influence
		}
		node.errGated = node.Derivative * err
		node.errResponsibility = node.errProjected + node.errGated
	}

	if node.Kind == Constant {
		return
	}

	for _, c := range node.In {
		gradient := node.errProjected * c.Eligibility
		for i, gid := range c.xtraceIDs {
			if gated := net.node(gid); gated != nil {
				gradient += gated.errResponsibility * c.xtraceVals[i]
			}
		}

		c.totalDeltaWeight += rate * gradient * node.Mask
		if update {
			c.totalDeltaWeight += momentum * c.prevDeltaWeight
			c.Weight += c.totalDeltaWeight
			c.prevDeltaWeight = c.totalDeltaWeight
			c.totalDeltaWeight = 0
		}
	}

	node.totalDeltaBias += rate * node.errResponsibility
	if update {
		node.totalDeltaBias += momentum * node.prevDeltaBias
		node.Bias += node.totalDeltaBias
		node.prevDeltaBias = node.totalDeltaBias
		node.totalDeltaBias = 0
	}
}

// clear resets activation state and traces to their identity values. Weights,
// bias and topology are untouched.
func (node *Node) clear() {
	for _, c := range node.In {
		c.resetTraces()
	}
	if node.Self != nil {
		node.Self.resetTraces()
	}
	node.errResponsibility = 0
	node.errProjected = 0
	node.errGated = 0
	node.Old = 0
	node.State = 0
	node.Activation = 0
	node.Derivative = 0
}

// isProjectingTo reports whether the node has an ordinary or self connection
// toward target.
func (node *Node) isProjectingTo(target *Node) bool {
	if node == target {
		return node.Self != nil
	}
	for _, c := range node.Out {
		if c.To == target.ID {
			return true
		}
	}
	return false
}
