package adapter

import (
	"fmt"

	"github.com/luma/lumen/protocol"
)

// tuple routes the i-th top-level completion to the i-th inner adapter.
// The index advances on OnEnd only, which the parser delivers once per
// completed top-level value, never mid-aggregate.
type tuple struct {
	inner []protocol.Adapter
	idx   int
}

// Tuple returns an adapter that feeds successive top-level responses to
// the given adapters in order. It is the natural target for a pipelined
// request and for the element-wise EXEC response of a transaction.
func Tuple(inner ...protocol.Adapter) protocol.Adapter {
	return &tuple{inner: inner}
}

func (a *tuple) OnSimple(t protocol.Type, data []byte) error {
	if a.idx >= len(a.inner) {
		return fmt.Errorf("%w: tuple of %d is full", ErrIncompatibleSize, len(a.inner))
	}
	return a.inner[a.idx].OnSimple(t, data)
}

func (a *tuple) OnAggregate(t protocol.Type, count int) error {
	if a.idx >= len(a.inner) {
		return fmt.Errorf("%w: tuple of %d is full", ErrIncompatibleSize, len(a.inner))
	}
	return a.inner[a.idx].OnAggregate(t, count)
}

func (a *tuple) OnEnd() error {
	if a.idx >= len(a.inner) {
		return nil
	}
	err := a.inner[a.idx].OnEnd()
	a.idx++
	return err
}
