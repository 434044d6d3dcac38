package carrot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationKindNames(t *testing.T) {
	for k := MutationKind(0); k < mutationKindCount; k++ {
		got, ok := MutationKindByName(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := MutationKindByName("NOT_A_MUTATION")
	assert.False(t, ok)
}

func TestMutationSets(t *testing.T) {
	ffw := FeedforwardMutations()
	all := AllMutations()

	assert.Len(t, all, int(mutationKindCount))
	assert.Less(t, len(ffw), len(all))
	for _, m := range ffw {
		assert.NotContains(t, []MutationKind{AddSelfConn, SubSelfConn, AddGate, SubGate, AddBackConn, SubBackConn}, m.Kind)
	}
}

func TestAddNodeSplitsConnection(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)
	m := NewMutation(AddNode)

	require.True(t, m.Possible(n))
	require.True(t, m.Apply(n))

	require.Len(t, n.Nodes, 3)
	assert.Equal(t, Hidden, n.Nodes[1].Kind)
	assert.Len(t, n.Connections, 2)
	// The direct connection is gone; the path runs through the new node.
	assert.False(t, n.Nodes[0].isProjectingTo(n.Nodes[2]))
	assert.True(t, n.Nodes[0].isProjectingTo(n.Nodes[1]))
	assert.True(t, n.Nodes[1].isProjectingTo(n.Nodes[2]))
}

func TestAddNodeKeepsSplitWeight(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)
	n.Connections[0].Weight = 0.42

	require.True(t, NewMutation(AddNode).Apply(n))

	// The second half of the split keeps the original weight.
	var toOutput *Connection
	for _, c := range n.Connections {
		if c.To == n.Nodes[2].ID {
			toOutput = c
		}
	}
	require.NotNil(t, toOutput)
	assert.Equal(t, 0.42, toOutput.Weight)
}

func TestSubNodeRestoresPath(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)
	require.True(t, NewMutation(AddNode).Apply(n))

	m := NewMutation(SubNode)
	require.True(t, m.Possible(n))
	require.True(t, m.Apply(n))

	assert.Len(t, n.Nodes, 2)
	assert.True(t, n.Nodes[0].isProjectingTo(n.Nodes[1]))

	// No hidden nodes left, so the operator reports infeasible.
	assert.False(t, m.Possible(n))
	assert.False(t, m.Apply(n))
}

func TestAddConnOnDenseNetwork(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	m := NewMutation(AddConn)

	// Every forward pair is already connected.
	assert.False(t, m.Possible(n))
	assert.False(t, m.Apply(n))

	// Splitting a connection opens new forward pairs.
	require.True(t, NewMutation(AddNode).Apply(n))
	require.True(t, m.Possible(n))
	before := len(n.Connections)
	require.True(t, m.Apply(n))
	assert.Len(t, n.Connections, before+1)
}

func TestAddConnNeverDuplicates(t *testing.T) {
	n := testNetwork(t, 2, 2, 3)
	require.True(t, NewMutation(AddNode).Apply(n))

	m := NewMutation(AddConn)
	for m.Possible(n) {
		require.True(t, m.Apply(n))
	}

	seen := make(map[[2]int]bool)
	for _, c := range n.Connections {
		key := [2]int{c.From, c.To}
		assert.False(t, seen[key], "duplicate connection %d -> %d", c.From, c.To)
		seen[key] = true
	}
}

func TestAddSelfConn(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)
	m := NewMutation(AddSelfConn)

	require.True(t, m.Possible(n))
	require.True(t, m.Apply(n))

	// Only the output node is eligible in a minimal network.
	require.Len(t, n.SelfConns, 1)
	self := n.SelfConns[0]
	assert.Equal(t, self.From, self.To)
	assert.Equal(t, n.Nodes[1].ID, self.From)
	assert.Same(t, self, n.Nodes[1].Self)

	// The only candidate is taken.
	assert.False(t, m.Possible(n))
	assert.False(t, m.Apply(n))

	sub := NewMutation(SubSelfConn)
	require.True(t, sub.Apply(n))
	assert.Empty(t, n.SelfConns)
	assert.Nil(t, n.Nodes[1].Self)
	assert.False(t, sub.Apply(n))
}

func TestAddAndSubGate(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	add := NewMutation(AddGate)
	sub := NewMutation(SubGate)

	assert.False(t, sub.Possible(n))

	require.True(t, add.Possible(n))
	require.True(t, add.Apply(n))
	require.Len(t, n.Gates, 1)
	// Gaters are drawn beyond the input partition.
	assert.Equal(t, n.Nodes[2].ID, n.Gates[0].Gater)

	require.True(t, add.Apply(n))
	assert.Len(t, n.Gates, 2)
	assert.False(t, add.Possible(n))

	require.True(t, sub.Apply(n))
	require.True(t, sub.Apply(n))
	assert.Empty(t, n.Gates)
	assert.False(t, sub.Apply(n))
}

func TestAddBackConn(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)
	m := NewMutation(AddBackConn)

	assert.False(t, m.Possible(n))

	require.True(t, NewMutation(AddNode).Apply(n))
	require.True(t, m.Possible(n))
	require.True(t, m.Apply(n))

	// The new connection runs against activation order.
	pos := n.positions()
	found := false
	for _, c := range n.Connections {
		if pos[c.From] > pos[c.To] {
			found = true
		}
	}
	assert.True(t, found)
}

func TestModWeightStaysBounded(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	m := NewMutation(ModWeight)
	m.Min, m.Max = -0.5, 0.5

	before := make(map[*Connection]float64)
	for _, c := range n.Connections {
		before[c] = c.Weight
	}
	require.True(t, m.Apply(n))

	changed := 0
	for _, c := range n.Connections {
		delta := c.Weight - before[c]
		if delta != 0 {
			changed++
			assert.GreaterOrEqual(t, delta, m.Min)
			assert.LessOrEqual(t, delta, m.Max)
		}
	}
	assert.Equal(t, 1, changed)
}

func TestModBiasSkipsInputs(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	m := NewMutation(ModBias)

	for i := 0; i < 50; i++ {
		require.True(t, m.Apply(n))
	}
	assert.Zero(t, n.Nodes[0].Bias)
	assert.Zero(t, n.Nodes[1].Bias)
	assert.NotZero(t, n.Nodes[2].Bias)
}

func TestModActivation(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)

	m := NewMutation(ModActivation)
	m.MutateOutput = false
	// Only inputs and outputs exist, so nothing may change.
	assert.False(t, m.Possible(n))
	assert.False(t, m.Apply(n))

	m.MutateOutput = true
	old := n.Nodes[2].Squash
	require.True(t, m.Apply(n))
	assert.NotEqual(t, old, n.Nodes[2].Squash)
}

func TestModActivationSingleAllowedSquash(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)

	// With only one allowed squash there is nothing to change to; Possible
	// and Apply must agree on that.
	m := NewMutation(ModActivation)
	m.Allowed = []Squash{Tanh}
	assert.False(t, m.Possible(n))
	assert.False(t, m.Apply(n))
}

func TestSwapNodes(t *testing.T) {
	n := testNetwork(t, 1, 1, 1)

	m := NewMutation(SwapNodes)
	m.MutateOutput = false
	assert.False(t, m.Apply(n))

	require.True(t, NewMutation(AddNode).Apply(n))
	require.True(t, NewMutation(AddNode).Apply(n))

	// With outputs excluded the two hidden nodes are the only candidates,
	// so the swap must exchange exactly their biases.
	n.Nodes[1].Bias = 1
	n.Nodes[2].Bias = 2
	hidden1, hidden2 := n.Nodes[1], n.Nodes[2]
	require.True(t, m.Apply(n))
	assert.Equal(t, 2.0, hidden1.Bias)
	assert.Equal(t, 1.0, hidden2.Bias)
}

func TestSubConnKeepsEndpointsWired(t *testing.T) {
	n := testNetwork(t, 2, 2, 5)
	m := NewMutation(SubConn)

	// In a dense 2x2 network every connection is severable: each endpoint
	// keeps another edge.
	require.True(t, m.Possible(n))
	require.True(t, m.Apply(n))
	assert.Len(t, n.Connections, 3)

	for _, node := range n.Nodes {
		if node.Kind == Input {
			assert.NotEmpty(t, node.Out)
		}
		if node.Kind == Output {
			assert.NotEmpty(t, node.In)
		}
	}
}
