package adapter

import (
	"github.com/luma/lumen/protocol"
)

// nodesSink records the full response tree as a flat pre-order node
// sequence. It tracks the aggregate nesting itself so each node carries
// its depth and the multiplicity of its enclosing aggregate.
type nodesSink struct {
	dst   *[]protocol.Node
	stack []openAggregate
}

type openAggregate struct {
	remaining int // -1 for streamed
	mult      int
}

// Nodes returns an adapter that appends every decoded frame to dst. It
// accepts any response shape, including server errors, which makes it the
// sink of choice for buffered pushes and generic inspection.
func Nodes(dst *[]protocol.Node) protocol.Adapter {
	*dst = (*dst)[:0]
	return &nodesSink{dst: dst}
}

func (a *nodesSink) OnSimple(t protocol.Type, data []byte) error {
	*a.dst = append(*a.dst, protocol.Node{
		Type:         t,
		Multiplicity: a.parentMult(),
		Depth:        len(a.stack),
		Value:        append([]byte(nil), data...),
	})
	a.completeChild()
	return nil
}

func (a *nodesSink) OnAggregate(t protocol.Type, count int) error {
	*a.dst = append(*a.dst, protocol.Node{
		Type:         t,
		Multiplicity: a.parentMult(),
		Depth:        len(a.stack),
		Count:        count,
	})

	if count == 0 {
		a.completeChild()
		return nil
	}

	remaining := -1
	if count > 0 {
		remaining = count * t.Multiplicity()
	}
	a.stack = append(a.stack, openAggregate{remaining: remaining, mult: t.Multiplicity()})
	return nil
}

func (a *nodesSink) OnEnd() error {
	a.stack = a.stack[:0]
	return nil
}

func (a *nodesSink) parentMult() int {
	if len(a.stack) == 0 {
		return 1
	}
	return a.stack[len(a.stack)-1].mult
}

func (a *nodesSink) completeChild() {
	for len(a.stack) > 0 {
		top := &a.stack[len(a.stack)-1]
		if top.remaining == -1 {
			return
		}
		top.remaining--
		if top.remaining > 0 {
			return
		}
		a.stack = a.stack[:len(a.stack)-1]
	}
}
