package carrot

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// networkJSON is the structural serialization form of a Network. Node and
// gater references are positional indices into the node list, so the form is
// stable across processes.
type networkJSON struct {
	Input       int        `json:"input"`
	Output      int        `json:"output"`
	Dropout     float64    `json:"dropout"`
	Nodes       []nodeJSON `json:"nodes"`
	Connections []connJSON `json:"connections"`
}

type nodeJSON struct {
	Kind       string  `json:"type"`
	Bias       float64 `json:"bias"`
	Squash     string  `json:"squash"`
	Mask       float64 `json:"mask"`
	SelfWeight float64 `json:"selfWeight,omitempty"`
	SelfGater  *int    `json:"selfGater,omitempty"`
}

type connJSON struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
	Gater  *int    `json:"gater"`
}

// ToJSON serializes the network's structure: sizes, dropout, nodes (bias,
// squash, kind, mask) and every ordinary and self connection with positional
// endpoint and gater indices. Runtime state (activations, traces) is not part
// of the structural form.
func (n *Network) ToJSON() []byte {
	pos := n.positions()

	form := networkJSON{
		Input:   n.Input,
		Output:  n.Output,
		Dropout: n.Dropout,
		Nodes:   make([]nodeJSON, 0, len(n.Nodes)),
	}
	for _, node := range n.Nodes {
		nj := nodeJSON{
			Kind:   node.Kind.String(),
			Bias:   node.Bias,
			Squash: node.Squash.String(),
			Mask:   node.Mask,
		}
		if node.Self != nil {
			nj.SelfWeight = node.Self.Weight
			if node.Self.Gater != NoGater {
				g := pos[node.Self.Gater]
				nj.SelfGater = &g
			}
		}
		form.Nodes = append(form.Nodes, nj)
	}
	for _, c := range n.Connections {
		cj := connJSON{
			From:   pos[c.From],
			To:     pos[c.To],
			Weight: c.Weight,
		}
		if c.Gater != NoGater {
			g := pos[c.Gater]
			cj.Gater = &g
		}
		form.Connections = append(form.Connections, cj)
	}

	data, err := json.Marshal(form)
	if err != nil {
		// The form contains only plain values; marshal cannot fail.
		panic(fmt.Sprintf("carrot: marshal network: %v", err))
	}
	return data
}

// FromJSON reconstructs a network from its structural form. The result
// activates identically to the serialized network for identical inputs, given
// identical dropout state.
func FromJSON(data []byte) (*Network, error) {
	var form networkJSON
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}
	if form.Input <= 0 || form.Output <= 0 {
		return nil, fmt.Errorf("%w: serialized network has input %d, output %d", ErrInvalidArgument, form.Input, form.Output)
	}
	if len(form.Nodes) < form.Input+form.Output {
		return nil, fmt.Errorf("%w: serialized network has %d nodes for %d inputs and %d outputs",
			ErrInvalidArgument, len(form.Nodes), form.Input, form.Output)
	}

	n := &Network{
		Input:   form.Input,
		Output:  form.Output,
		Dropout: form.Dropout,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		byID:    make(map[int]*Node),
	}
	for i, nj := range form.Nodes {
		kind, ok := nodeKindByName(nj.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: unknown node type %q at index %d", ErrInvalidArgument, nj.Kind, i)
		}
		squash, err := SquashByName(nj.Squash)
		if err != nil {
			return nil, err
		}
		node := newNode(0, kind, nj.Bias, squash)
		node.Mask = nj.Mask
		n.addNode(node)
	}
	for i, nj := range form.Nodes {
		if nj.SelfWeight == 0 {
			continue
		}
		c, err := n.Connect(n.Nodes[i], n.Nodes[i], nj.SelfWeight)
		if err != nil {
			return nil, err
		}
		if nj.SelfGater != nil {
			if *nj.SelfGater < 0 || *nj.SelfGater >= len(n.Nodes) {
				return nil, fmt.Errorf("%w: self-gater index %d out of range", ErrInvalidArgument, *nj.SelfGater)
			}
			if err := n.Gate(n.Nodes[*nj.SelfGater], c); err != nil {
				return nil, err
			}
		}
	}
	for _, cj := range form.Connections {
		if cj.From < 0 || cj.From >= len(n.Nodes) || cj.To < 0 || cj.To >= len(n.Nodes) {
			return nil, fmt.Errorf("%w: connection endpoint out of range (%d -> %d)", ErrInvalidArgument, cj.From, cj.To)
		}
		c, err := n.Connect(n.Nodes[cj.From], n.Nodes[cj.To], cj.Weight)
		if err != nil {
			return nil, err
		}
		if cj.Gater != nil {
			if *cj.Gater < 0 || *cj.Gater >= len(n.Nodes) {
				return nil, fmt.Errorf("%w: gater index %d out of range", ErrInvalidArgument, *cj.Gater)
			}
			if err := n.Gate(n.Nodes[*cj.Gater], c); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// endOfNode terminates one node record in the flattened connection stream.
// From-indices are never negative, so the sentinel is unambiguous.
const endOfNode = -2

// Flatten exports the network as three flat numeric sequences: the current
// activations, the current states, and a tokenized connection stream. Each
// node record in the stream is bias, squash id, self-connection weight,
// self-gater index (-1 when absent), one (from-index, weight, gater-index)
// triple per incoming connection, then the end-of-node terminator. The form
// is sufficient to reconstruct activation behavior without re-deriving
// topology.
func (n *Network) Flatten() (activations, states, stream []float64) {
	pos := n.positions()

	activations = make([]float64, 0, len(n.Nodes))
	states = make([]float64, 0, len(n.Nodes))
	for _, node := range n.Nodes {
		activations = append(activations, node.Activation)
		states = append(states, node.State)

		stream = append(stream, node.Bias, float64(node.Squash))
		if node.Self != nil {
			stream = append(stream, node.Self.Weight)
			if node.Self.Gater != NoGater {
				stream = append(stream, float64(pos[node.Self.Gater]))
			} else {
				stream = append(stream, NoGater)
			}
		} else {
			stream = append(stream, 0, NoGater)
		}
		for _, c := range node.In {
			gater := float64(NoGater)
			if c.Gater != NoGater {
				gater = float64(pos[c.Gater])
			}
			stream = append(stream, float64(pos[c.From]), c.Weight, gater)
		}
		stream = append(stream, endOfNode)
	}
	return activations, states, stream
}

// Unflatten rebuilds a runnable network from the flattened form produced by
// Flatten. Node kinds are recovered from the positional partition; traces
// start cleared, activations and states are restored.
func Unflatten(input, output int, activations, states, stream []float64) (*Network, error) {
	if input <= 0 || output <= 0 {
		return nil, fmt.Errorf("%w: flattened network needs positive sizes", ErrInvalidArgument)
	}
	if len(activations) != len(states) || len(activations) < input+output {
		return nil, fmt.Errorf("%w: flattened network has %d activations and %d states for %d inputs and %d outputs",
			ErrInvalidArgument, len(activations), len(states), input, output)
	}

	total := len(activations)
	n := &Network{
		Input:  input,
		Output: output,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		byID:   make(map[int]*Node),
	}
	for i := 0; i < total; i++ {
		kind := Hidden
		if i < input {
			kind = Input
		} else if i >= total-output {
			kind = Output
		}
		node := n.addNode(newNode(0, kind, 0, Logistic))
		node.Activation = activations[i]
		node.State = states[i]
	}

	type pendingConn struct {
		from, to, gater int
		weight          float64
	}
	var pending []pendingConn

	cursor := 0
	for i := 0; i < total; i++ {
		if cursor+4 > len(stream) {
			return nil, fmt.Errorf("%w: truncated connection stream at node %d", ErrInvalidArgument, i)
		}
		node := n.Nodes[i]
		node.Bias = stream[cursor]
		squash := Squash(stream[cursor+1])
		if !squash.Valid() {
			return nil, fmt.Errorf("%w: squash id %v out of range", ErrInvalidArgument, stream[cursor+1])
		}
		node.Squash = squash
		selfWeight := stream[cursor+2]
		selfGater := int(stream[cursor+3])
		cursor += 4
		if selfWeight != 0 {
			pending = append(pending, pendingConn{from: i, to: i, gater: selfGater, weight: selfWeight})
		}
		for cursor < len(stream) && stream[cursor] != endOfNode {
			if cursor+3 > len(stream) {
				return nil, fmt.Errorf("%w: truncated connection triple at node %d", ErrInvalidArgument, i)
			}
			pending = append(pending, pendingConn{
				from:   int(stream[cursor]),
				to:     i,
				gater:  int(stream[cursor+2]),
				weight: stream[cursor+1],
			})
			cursor += 3
		}
		if cursor >= len(stream) {
			return nil, fmt.Errorf("%w: missing end-of-node terminator for node %d", ErrInvalidArgument, i)
		}
		cursor++ // consume terminator
	}

	for _, pc := range pending {
		if pc.from < 0 || pc.from >= total {
			return nil, fmt.Errorf("%w: from-index %d out of range", ErrInvalidArgument, pc.from)
		}
		c, err := n.Connect(n.Nodes[pc.from], n.Nodes[pc.to], pc.weight)
		if err != nil {
			return nil, err
		}
		if pc.gater != NoGater {
			if pc.gater < 0 || pc.gater >= total {
				return nil, fmt.Errorf("%w: gater index %d out of range", ErrInvalidArgument, pc.gater)
			}
			if err := n.Gate(n.Nodes[pc.gater], c); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}
