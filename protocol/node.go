package protocol

// Adapter is a sink for decoded RESP3 events. The Parser calls exactly one
// of OnSimple or OnAggregate per frame, in pre-order, and OnEnd once when
// the top-level value completes.
//
// Implementations must be safe to call OnEnd on more than once. Returning
// an error stops delivery for the remainder of the current top-level
// value; the parser drains the value off the wire and reports the error
// through Parser.Err.
type Adapter interface {
	// OnSimple receives a completed simple frame. For blob types data is
	// the raw payload, for the other simple types it is the frame text
	// excluding the trailing CRLF. The data slice is only valid for the
	// duration of the call.
	OnSimple(t Type, data []byte) error

	// OnAggregate receives an aggregate header. A count of -1 indicates a
	// streamed aggregate of unknown length.
	OnAggregate(t Type, count int) error

	// OnEnd is called once the top-level value has fully arrived.
	OnEnd() error
}

// Node is one decoded frame of a response tree. Nodes are produced in
// pre-order, so a tree can be flattened to a []Node and replayed later.
type Node struct {
	// Type of the frame.
	Type Type

	// Multiplicity of the enclosing aggregate, 1 at the top level.
	Multiplicity int

	// Depth in the response tree, 0 at the top level.
	Depth int

	// Value holds the payload of simple frames. For aggregate headers it
	// is empty and Count carries the declared size instead.
	Value []byte

	// Count is the declared element count of an aggregate header, -1 for
	// streamed aggregates.
	Count int
}

// ReplayNodes drives sink with a previously recorded pre-order node
// sequence, ending with OnEnd. It is used to hand buffered server pushes
// to a late receiver.
func ReplayNodes(nodes []Node, sink Adapter) error {
	for i := range nodes {
		var err error
		if nodes[i].Type.IsAggregate() {
			err = sink.OnAggregate(nodes[i].Type, nodes[i].Count)
		} else {
			err = sink.OnSimple(nodes[i].Type, nodes[i].Value)
		}
		if err != nil {
			return err
		}
	}
	return sink.OnEnd()
}
