package adapter

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/luma/lumen/protocol"
)

// trans unwraps the array a server sends in response to EXEC and routes
// element i to inner adapter i. Unlike Tuple it cannot rely on top-level
// completions, the elements are children of the envelope array, so it
// keeps its own aggregate accounting to know where one element ends and
// the next begins.
//
// Element-level failures, a server error or a shape mismatch inside one
// element, must not starve the elements after it. They are accumulated
// and surfaced from OnEnd; only envelope-level problems abort delivery.
type trans struct {
	inner   []protocol.Adapter
	idx     int
	started bool
	nulled  bool
	stack   []openAggregate

	errs    error
	elemErr error
}

// Trans returns the adapter for a transaction (EXEC) response: an array
// with one element per queued command, dispatched to the given adapters
// in command-issue order. A null response, the shape of an aborted
// transaction, is swallowed and leaves every inner adapter untouched.
func Trans(inner ...protocol.Adapter) protocol.Adapter {
	return &trans{inner: inner}
}

func (a *trans) OnSimple(t protocol.Type, data []byte) error {
	if !a.started {
		if err := serverError(t, data); err != nil {
			return err
		}
		if t == protocol.TypeNull {
			a.nulled = true
			return nil
		}
		return fmt.Errorf("%w: got %q", ErrExpectsAggregate, t)
	}

	if a.idx >= len(a.inner) {
		return fmt.Errorf("%w: transaction of %d is full", ErrIncompatibleSize, len(a.inner))
	}

	a.recordElemErr(a.inner[a.idx].OnSimple(t, data))
	a.completeChild()
	return nil
}

func (a *trans) OnAggregate(t protocol.Type, count int) error {
	if !a.started {
		if t.Multiplicity() != 1 {
			return fmt.Errorf("%w: got %q", ErrExpectsAggregate, t)
		}
		if count >= 0 && count != len(a.inner) {
			return fmt.Errorf("%w: %d responses for %d adapters", ErrIncompatibleSize, count, len(a.inner))
		}
		a.started = true
		return nil
	}

	if a.idx >= len(a.inner) {
		return fmt.Errorf("%w: transaction of %d is full", ErrIncompatibleSize, len(a.inner))
	}

	a.recordElemErr(a.inner[a.idx].OnAggregate(t, count))

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

func (a *trans) OnEnd() error {
	a.stack = a.stack[:0]
	err := multierr.Append(a.errs, a.elemErr)
	a.errs = nil
	a.elemErr = nil
	return err
}

// recordElemErr keeps the first error of the current element.
func (a *trans) recordElemErr(err error) {
	if err != nil && a.elemErr == nil {
		a.elemErr = err
	}
}

// completeChild pops finished aggregates and, once the accounting is back
// at the element level, closes out the current element and moves to the
// next.
func (a *trans) completeChild() {
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

	if a.idx < len(a.inner) {
		// Errors from OnEnd here would mask the element's own result.
		_ = a.inner[a.idx].OnEnd()
	}
	a.errs = multierr.Append(a.errs, a.elemErr)
	a.elemErr = nil
	a.idx++
}
