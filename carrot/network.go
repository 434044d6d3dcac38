package carrot

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Network is a genome: an ordered set of nodes and the weighted, optionally
// gated connections between them. The first Input positions of Nodes are
// always input nodes and the trailing Output positions are always output
// nodes; everything in between is hidden or constant. Input and output counts
// never change after construction.
//
// A Network's methods must be serialized per instance; activation mutates
// node state in place each tick.
type Network struct {
	Input   int
	Output  int
	Dropout float64

	Nodes       []*Node
	Connections []*Connection
	SelfConns   []*Connection
	Gates       []*Connection

	// Score is the fitness assigned by an evaluator; nil means unevaluated.
	Score *float64

	// Warnings enables warning-level output for skipped operations.
	Warnings bool

	rng    *rand.Rand
	nextID int
	byID   map[int]*Node
}

// NewNetwork creates a network with the given input and output sizes, densely
// connecting every input node to every output node. The random source is
// time-seeded; use NewNetworkRand for reproducible construction.
func NewNetwork(input, output int) (*Network, error) {
	return NewNetworkRand(input, output, nil)
}

// NewNetworkRand is NewNetwork with an explicit random source. The source is
// retained and used for every stochastic operation on the network. A nil rng
// falls back to a time-seeded source.
func NewNetworkRand(input, output int, rng *rand.Rand) (*Network, error) {
	if input <= 0 || output <= 0 {
		return nil, fmt.Errorf("%w: network needs positive input (%d) and output (%d) sizes", ErrInvalidArgument, input, output)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := &Network{
		Input:  input,
		Output: output,
		rng:    rng,
		byID:   make(map[int]*Node),
	}
	for i := 0; i < input+output; i++ {
		kind := Input
		if i >= input {
			kind = Output
		}
		n.addNode(newNode(0, kind, 0, Logistic))
	}

	// He-like initial weights for the dense input->output layer.
	for i := 0; i < input; i++ {
		for j := input; j < input+output; j++ {
			weight := rng.Float64() * float64(input) * math.Sqrt(2/float64(input))
			if _, err := n.Connect(n.Nodes[i], n.Nodes[j], weight); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// addNode appends a node, assigning it a fresh stable id, and returns it.
func (n *Network) addNode(node *Node) *Node {
	node.ID = n.nextID
	n.nextID++
	n.Nodes = append(n.Nodes, node)
	n.byID[node.ID] = node
	return node
}

// insertNode splices a node into the ordered sequence at position pos.
func (n *Network) insertNode(node *Node, pos int) *Node {
	node.ID = n.nextID
	n.nextID++
	n.Nodes = append(n.Nodes, nil)
	copy(n.Nodes[pos+1:], n.Nodes[pos:])
	n.Nodes[pos] = node
	n.byID[node.ID] = node
	return node
}

// node resolves a node id; nil when the id is not (or no longer) present.
func (n *Network) node(id int) *Node {
	return n.byID[id]
}

// gain is the effective multiplier a gating node applies to a connection: the
// gater's current activation, or 1 for an ungated connection.
func (n *Network) gain(c *Connection) float64 {
	if c.Gater == NoGater {
		return 1
	}
	return n.byID[c.Gater].Activation
}

// position returns the index of node in the ordered sequence, or -1.
func (n *Network) position(node *Node) int {
	for i, cand := range n.Nodes {
		if cand == node {
			return i
		}
	}
	return -1
}

// positions builds the node-id -> order-index map used wherever innovation
// keys are derived.
func (n *Network) positions() map[int]int {
	pos := make(map[int]int, len(n.Nodes))
	for i, node := range n.Nodes {
		pos[node.ID] = i
	}
	return pos
}

func (n *Network) warn(format string, args ...interface{}) {
	if n.Warnings {
		fmt.Printf("Warning: "+format+"\n", args...)
	}
}

// Activate feeds the input vector through the network and returns the ordered
// output activations. Nodes are processed in stored order, which need not be
// topological: a connection whose source has not been recomputed this tick
// contributes the previous tick's activation. When training is true, hidden
// and constant nodes draw a fresh dropout mask; output nodes never do.
func (n *Network) Activate(input []float64, training bool) ([]float64, error) {
	return n.activate(input, training, true)
}

// NoTraceActivate is Activate without the trace bookkeeping needed for a
// subsequent Propagate. Use it for inference.
func (n *Network) NoTraceActivate(input []float64) ([]float64, error) {
	return n.activate(input, false, false)
}

func (n *Network) activate(input []float64, training, trace bool) ([]float64, error) {
	if len(input) != n.Input {
		return nil, fmt.Errorf("%w: input length %d, network expects %d", ErrSizeMismatch, len(input), n.Input)
	}

	output := make([]float64, 0, n.Output)
	inputIdx := 0
	for _, node := range n.Nodes {
		switch node.Kind {
		case Input:
			node.Activation = input[inputIdx]
			inputIdx++
		case Output:
			if trace {
				output = append(output, node.activate(n))
			} else {
				output = append(output, node.noTraceActivate(n))
			}
		default:
			if training {
				if n.rng.Float64() < n.Dropout {
					node.Mask = 0
				} else {
					node.Mask = 1
				}
			}
			if trace {
				node.activate(n)
			} else {
				node.noTraceActivate(n)
			}
		}
	}
	return output, nil
}

// Propagate runs one backward pass of the local gradient rule against the
// target vector. Nodes are processed in reverse order. When update is false
// the computed deltas accumulate without touching weights, which is what
// enables mini-batch training; a later call with update true applies them.
func (n *Network) Propagate(rate, momentum float64, update bool, target []float64) error {
	if len(target) != n.Output {
		return fmt.Errorf("%w: target length %d, network expects %d", ErrSizeMismatch, len(target), n.Output)
	}

	targetIdx := n.Output
	for i := len(n.Nodes) - 1; i >= 0; i-- {
		node := n.Nodes[i]
		switch node.Kind {
		case Output:
			targetIdx--
			t := target[targetIdx]
			node.propagate(n, rate, momentum, update, &t)
		case Input:
			// Inputs carry no incoming weights or bias to adjust.
		default:
			node.propagate(n, rate, momentum, update, nil)
		}
	}
	return nil
}

// Clear resets every node's activation, state and traces to their identity
// values. Weights, biases and topology are untouched. Call it between
// unrelated sequences so recurrent state does not leak.
func (n *Network) Clear() {
	for _, node := range n.Nodes {
		node.clear()
	}
}

// Connect creates a connection from one node to another. The optional weight
// defaults to a small uniform draw, or to 1 for a self-connection. Creating a
// second ordinary connection for the same ordered pair is an error.
func (n *Network) Connect(from, to *Node, weight ...float64) (*Connection, error) {
	var w float64
	if len(weight) > 0 {
		w = weight[0]
	} else if from == to {
		w = 1
	} else {
		w = n.rng.Float64()*0.2 - 0.1
	}

	if from == to {
		if from.Self != nil {
			return nil, fmt.Errorf("%w: node %d already has a self-connection", ErrDuplicateConnection, from.ID)
		}
		c := newConnection(from.ID, from.ID, w)
		from.Self = c
		n.SelfConns = append(n.SelfConns, c)
		return c, nil
	}

	if from.isProjectingTo(to) {
		return nil, fmt.Errorf("%w: %d -> %d", ErrDuplicateConnection, from.ID, to.ID)
	}
	c := newConnection(from.ID, to.ID, w)
	from.Out = append(from.Out, c)
	to.In = append(to.In, c)
	n.Connections = append(n.Connections, c)
	return c, nil
}

// Disconnect removes the connection between two nodes, ungating it first if
// it is gated. Removing a connection that does not exist is an error.
func (n *Network) Disconnect(from, to *Node) error {
	if from == to {
		if from.Self == nil {
			return fmt.Errorf("%w: node %d has no self-connection", ErrConnectionNotFound, from.ID)
		}
		c := from.Self
		if c.Gater != NoGater {
			if err := n.Ungate(c); err != nil {
				return err
			}
		}
		from.Self = nil
		n.SelfConns = removeConn(n.SelfConns, c)
		return nil
	}

	for _, c := range n.Connections {
		if c.From == from.ID && c.To == to.ID {
			if c.Gater != NoGater {
				if err := n.Ungate(c); err != nil {
					return err
				}
			}
			from.Out = removeConn(from.Out, c)
			to.In = removeConn(to.In, c)
			n.Connections = removeConn(n.Connections, c)
			return nil
		}
	}
	return fmt.Errorf("%w: %d -> %d", ErrConnectionNotFound, from.ID, to.ID)
}

// Gate makes node the gater of the connection: the connection's signal is
// multiplied by the node's activation. Gating with a node that is not part of
// the network is an error; gating an already-gated connection is skipped with
// a warning.
func (n *Network) Gate(node *Node, c *Connection) error {
	if n.byID[node.ID] != node {
		return fmt.Errorf("%w: gating node %d", ErrNodeNotFound, node.ID)
	}
	if c.Gater != NoGater {
		n.warn("connection %d -> %d is already gated, skipping", c.From, c.To)
		return nil
	}
	c.Gater = node.ID
	node.Gated = append(node.Gated, c)
	n.Gates = append(n.Gates, c)
	return nil
}

// Ungate removes the gater from a connection. Ungating an ungated connection
// is an error.
func (n *Network) Ungate(c *Connection) error {
	if c.Gater == NoGater {
		return fmt.Errorf("%w: %d -> %d", ErrNotGated, c.From, c.To)
	}
	gater := n.byID[c.Gater]
	if gater != nil {
		gater.Gated = removeConn(gater.Gated, c)
	}
	c.Gater = NoGater
	n.Gates = removeConn(n.Gates, c)
	return nil
}

// Remove deletes a node from the network, bridging its former inputs to its
// former outputs. Gates displaced from the severed connections are
// redistributed onto the newly created bridge connections.
func (n *Network) Remove(node *Node) error {
	return n.remove(node, true)
}

func (n *Network) remove(node *Node, keepGates bool) error {
	pos := n.position(node)
	if pos < 0 {
		return fmt.Errorf("%w: removing node %d", ErrNodeNotFound, node.ID)
	}

	var gaters []*Node

	if node.Self != nil {
		if err := n.Disconnect(node, node); err != nil {
			return err
		}
	}

	var inputs, outputs []*Node
	for _, c := range append([]*Connection(nil), node.In...) {
		if keepGates && c.Gater != NoGater && c.Gater != node.ID {
			gaters = append(gaters, n.byID[c.Gater])
		}
		from := n.byID[c.From]
		inputs = append(inputs, from)
		if err := n.Disconnect(from, node); err != nil {
			return err
		}
	}
	for _, c := range append([]*Connection(nil), node.Out...) {
		if keepGates && c.Gater != NoGater && c.Gater != node.ID {
			gaters = append(gaters, n.byID[c.Gater])
		}
		to := n.byID[c.To]
		outputs = append(outputs, to)
		if err := n.Disconnect(node, to); err != nil {
			return err
		}
	}

	// Bridge former inputs to former outputs unless already connected.
	var bridges []*Connection
	for _, from := range inputs {
		for _, to := range outputs {
			if !from.isProjectingTo(to) {
				c, err := n.Connect(from, to)
				if err != nil {
					return err
				}
				bridges = append(bridges, c)
			}
		}
	}

	// Redistribute displaced gates onto the bridges, at random, until either
	// runs out.
	for _, gater := range gaters {
		if len(bridges) == 0 {
			break
		}
		idx := n.rng.Intn(len(bridges))
		if err := n.Gate(gater, bridges[idx]); err != nil {
			return err
		}
		bridges = append(bridges[:idx], bridges[idx+1:]...)
	}

	// Whatever the removed node itself was gating loses its gater.
	for _, c := range append([]*Connection(nil), node.Gated...) {
		if err := n.Ungate(c); err != nil {
			return err
		}
	}

	delete(n.byID, node.ID)
	n.Nodes = append(n.Nodes[:pos], n.Nodes[pos+1:]...)
	return nil
}

// Clone produces an independent deep copy of the network, score included. The
// clone gets its own random source, seeded from the parent's, so clones can
// be activated or trained concurrently without sharing rand state.
func (n *Network) Clone() *Network {
	clone, err := FromJSON(n.ToJSON())
	if err != nil {
		// ToJSON output is always well-formed; a failure here is a bug.
		panic(fmt.Sprintf("carrot: clone round-trip failed: %v", err))
	}
	clone.rng = rand.New(rand.NewSource(n.rng.Int63()))
	clone.Warnings = n.Warnings
	if n.Score != nil {
		score := *n.Score
		clone.Score = &score
	}
	return clone
}

// SetScore assigns a fitness score; NaN is normalized to negative infinity so
// selection stays total-ordered.
func (n *Network) SetScore(score float64) {
	if math.IsNaN(score) {
		score = math.Inf(-1)
	}
	n.Score = &score
}

func removeConn(conns []*Connection, c *Connection) []*Connection {
	for i, cand := range conns {
		if cand == c {
			return append(conns[:i], conns[i+1:]...)
		}
	}
	return conns
}
