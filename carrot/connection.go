package carrot

// NoGater is the Gater value of an ungated connection.
const NoGater = -1

// Connection is a weighted, optionally gated edge between two nodes. It
// references its endpoints and gater by stable node id rather than by
// pointer, so the node/connection graph carries no reference cycles; the
// owning Network resolves ids.
type Connection struct {
	From   int // node id of the source
	To     int // node id of the target
	Gater  int // node id of the gating node, or NoGater
	Weight float64

	// Eligibility is the local trace of the source's influence on the
	// target, maintained by the real-time gradient rule.
	Eligibility float64

	// Extended traces, one per node this connection's target is gated
	// toward. Parallel slices keyed by node id.
	xtraceIDs  []int
	xtraceVals []float64

	prevDeltaWeight  float64
	totalDeltaWeight float64
}

func newConnection(from, to int, weight float64) *Connection {
	return &Connection{From: from, To: to, Gater: NoGater, Weight: weight}
}

// xtrace returns the extended trace slot for node id, or -1 when absent.
func (c *Connection) xtrace(id int) int {
	for i, xid := range c.xtraceIDs {
		if xid == id {
			return i
		}
	}
	return -1
}

func (c *Connection) resetTraces() {
	c.Eligibility = 0
	c.xtraceIDs = c.xtraceIDs[:0]
	c.xtraceVals = c.xtraceVals[:0]
}

// innovationKey derives the crossover-alignment key of a connection from the
// positional indices of its endpoints, via the Cantor pairing function. The
// key is recomputed whenever indices are assigned; it is not persisted
// identity.
func innovationKey(fromIndex, toIndex int) int {
	a, b := fromIndex, toIndex
	return (a+b)*(a+b+1)/2 + b
}
