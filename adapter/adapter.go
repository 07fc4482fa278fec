// Package adapter provides sinks that materialise decoded RESP3 events
// into Go values. Adapters are driven by protocol.Parser, one top-level
// value at a time, and report shape mismatches through sentinel errors.
package adapter

import (
	"errors"
	"fmt"

	"github.com/luma/lumen/protocol"
)

var (
	ErrExpectsSimpleType   = errors.New("expects a simple RESP3 type")
	ErrExpectsAggregate    = errors.New("expects an aggregate RESP3 type")
	ErrExpectsMapAggregate = errors.New("expects a map-like aggregate")
	ErrExpectsSetAggregate = errors.New("expects a set-like aggregate")
	ErrSimpleError         = errors.New("RESP3 simple-error response")
	ErrBlobError           = errors.New("RESP3 blob-error response")
	ErrNull                = errors.New("response is null")
	ErrIncompatibleSize    = errors.New("aggregate size is incompatible with the adapter")
	ErrUnexpected          = errors.New("unexpected response")

	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidDouble    = errors.New("invalid double")
	ErrInvalidBoolean   = errors.New("invalid boolean")
	ErrInvalidBigNumber = errors.New("invalid big number")
)

// BulkUnmarshaler is implemented by values that deserialise themselves
// from the payload of a single bulk string, e.g. serde.Doc.
type BulkUnmarshaler interface {
	UnmarshalBulk(data []byte) error
}

// serverError converts server-reported error frames into error values.
// The diagnostic string sent by the server is carried in the message.
func serverError(t protocol.Type, data []byte) error {
	switch t {
	case protocol.TypeSimpleError:
		return fmt.Errorf("%w: %s", ErrSimpleError, data)
	case protocol.TypeBlobError:
		return fmt.Errorf("%w: %s", ErrBlobError, data)
	default:
		return nil
	}
}

type ignore struct{}

// Ignore returns an adapter that accepts any response and drops it.
func Ignore() protocol.Adapter {
	return ignore{}
}

func (ignore) OnSimple(protocol.Type, []byte) error { return nil }
func (ignore) OnAggregate(protocol.Type, int) error { return nil }
func (ignore) OnEnd() error                         { return nil }

type failed struct{ err error }

func (f failed) OnSimple(protocol.Type, []byte) error { return f.err }
func (f failed) OnAggregate(protocol.Type, int) error { return f.err }
func (f failed) OnEnd() error                         { return nil }

var _ protocol.Adapter = ignore{}
var _ protocol.Adapter = failed{}
