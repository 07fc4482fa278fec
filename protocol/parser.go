package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnexpectedType  = errors.New("unknown frame type tag")
	ErrInvalidHeader   = errors.New("malformed frame header")
	ErrUnexpectedEOL   = errors.New("frame is missing its \\r\\n terminator")
	ErrNestedAggregate = errors.New("aggregate nesting depth exceeds the supported maximum")
)

// MaxAggregateDepth bounds how deeply aggregates may nest inside a single
// response. Deeper frames fail with ErrNestedAggregate.
const MaxAggregateDepth = 5

var crlf = []byte("\r\n")

type bulkState int

const (
	bulkNone bulkState = iota
	bulkLengthKnown
)

type aggregate struct {
	typ Type

	// Child frames still expected, -1 for streamed aggregates which are
	// ended by a '.' frame instead.
	remaining int

	mult int
}

// Parser is an incremental RESP3 decoder. It consumes bytes from a caller
// owned buffer via Advance and drives an Adapter with typed events. One
// Parser decodes exactly one top-level value; call Reset to decode the
// next.
//
// The parser itself does not allocate. All buffers belong to the caller
// and event payloads are only valid for the duration of the callback.
type Parser struct {
	sink Adapter

	stack [MaxAggregateDepth]aggregate
	depth int

	bulk     bulkState
	bulkType Type
	bulkLen  int

	// Inside a streamed blob string, i.e. expecting ';' chunks.
	chunked bool

	done    bool
	sinkErr error
}

// NewParser returns a Parser that delivers events to sink.
func NewParser(sink Adapter) *Parser {
	p := &Parser{}
	p.Reset(sink)
	return p
}

// Reset discards all parsing state and arms the parser for the next
// top-level value, delivered to sink.
func (p *Parser) Reset(sink Adapter) {
	*p = Parser{sink: sink}
}

// Done reports whether the top-level value has fully arrived.
func (p *Parser) Done() bool {
	return p.done
}

// Err returns the first error reported by the adapter while the value was
// being delivered. The parser keeps consuming the value off the wire
// after an adapter error so the stream stays in sync; protocol errors are
// returned by Advance instead and are fatal.
func (p *Parser) Err() error {
	return p.sinkErr
}

// BulkLength returns the payload length the parser is waiting on and true
// when it is mid-bulk. Callers can use it to size reads.
func (p *Parser) BulkLength() (int, bool) {
	if p.bulk == bulkLengthKnown {
		return p.bulkLen, true
	}
	return 0, false
}

// Advance consumes at most len(buf) bytes and returns how many were
// consumed. It stops early when it needs more input or when the top-level
// value completes; feeding it one byte at a time converges to the same
// state as feeding the whole buffer at once.
func (p *Parser) Advance(buf []byte) (int, error) {
	consumed := 0

	for !p.done {
		rest := buf[consumed:]

		if p.bulk == bulkLengthKnown {
			need := p.bulkLen + 2
			if len(rest) < need {
				return consumed, nil
			}

			if rest[p.bulkLen] != '\r' || rest[p.bulkLen+1] != '\n' {
				return consumed, fmt.Errorf("%w: bulk payload of length %d", ErrUnexpectedEOL, p.bulkLen)
			}

			payload := rest[:p.bulkLen]
			consumed += need
			p.bulk = bulkNone

			if p.chunked {
				// A chunk extends the current streamed string, it does not
				// complete the value.
				p.emitSimple(TypeStreamedStringPart, payload)
				continue
			}

			p.emitSimple(p.bulkType, payload)
			p.completeValue()
			continue
		}

		i := bytes.Index(rest, crlf)
		if i < 0 {
			return consumed, nil
		}

		line := rest[:i]
		consumed += i + 2

		if err := p.processLine(line); err != nil {
			return consumed, err
		}
	}

	return consumed, nil
}

func (p *Parser) processLine(line []byte) error {
	if len(line) == 0 {
		return fmt.Errorf("%w: empty line", ErrInvalidHeader)
	}

	t := ToType(line[0])
	body := line[1:]

	switch {
	case t == TypeInvalid:
		return fmt.Errorf("%w: %q", ErrUnexpectedType, line[0])

	case t == TypeStreamEnd:
		if len(body) != 0 {
			return fmt.Errorf("%w: stream end carries data", ErrInvalidHeader)
		}
		if p.depth == 0 || p.stack[p.depth-1].remaining != -1 {
			return fmt.Errorf("%w: stream end outside a streamed aggregate", ErrInvalidHeader)
		}
		// The streamed aggregate itself is now a completed value.
		p.depth--
		p.completeValue()
		return nil

	case t == TypeStreamedStringPart:
		if !p.chunked {
			return fmt.Errorf("%w: chunk outside a streamed string", ErrInvalidHeader)
		}
		n, err := parseDecimal(body)
		if err != nil {
			return err
		}
		if n == 0 {
			// Last chunk, the streamed string is complete.
			p.chunked = false
			p.completeValue()
			return nil
		}
		p.bulk = bulkLengthKnown
		p.bulkLen = n
		return nil

	case t.IsBlob():
		if len(body) == 1 && body[0] == '?' {
			// Streamed string, the payload follows as ';' chunks.
			p.chunked = true
			return nil
		}
		if len(body) == 2 && body[0] == '-' && body[1] == '1' {
			// RESP2 style null.
			p.emitSimple(TypeNull, nil)
			p.completeValue()
			return nil
		}
		n, err := parseDecimal(body)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: blob length %d", ErrInvalidHeader, n)
		}
		p.bulk = bulkLengthKnown
		p.bulkType = t
		p.bulkLen = n
		return nil

	case t.IsAggregate():
		if len(body) == 1 && body[0] == '?' {
			return p.pushAggregate(t, -1)
		}
		n, err := parseDecimal(body)
		if err != nil {
			return err
		}
		if n < 0 {
			if n == -1 && t == TypeArray {
				// RESP2 style null array.
				p.emitSimple(TypeNull, nil)
				p.completeValue()
				return nil
			}
			if n == -1 {
				return p.pushAggregate(t, -1)
			}
			return fmt.Errorf("%w: aggregate count %d", ErrInvalidHeader, n)
		}
		return p.pushAggregate(t, n)

	default:
		// Remaining simple types carry their datum in the line itself.
		p.emitSimple(t, body)
		p.completeValue()
		return nil
	}
}

func (p *Parser) pushAggregate(t Type, count int) error {
	if p.depth == MaxAggregateDepth {
		return fmt.Errorf("%w: depth %d", ErrNestedAggregate, p.depth+1)
	}

	p.emitAggregate(t, count)

	if count == 0 {
		// Empty aggregate, the header alone completes the value.
		p.completeValue()
		return nil
	}

	remaining := -1
	if count > 0 {
		remaining = count * t.Multiplicity()
	}

	p.stack[p.depth] = aggregate{typ: t, remaining: remaining, mult: t.Multiplicity()}
	p.depth++
	return nil
}

// completeValue propagates the completion of one frame up the aggregate
// stack and sets done when the top-level value is finished.
func (p *Parser) completeValue() {
	for {
		if p.depth == 0 {
			p.done = true
			p.emitEnd()
			return
		}

		top := &p.stack[p.depth-1]
		if top.remaining == -1 {
			// Streamed aggregates only complete on their '.' frame.
			return
		}

		top.remaining--
		if top.remaining > 0 {
			return
		}

		p.depth--
	}
}

func (p *Parser) emitSimple(t Type, data []byte) {
	if p.sinkErr != nil {
		return
	}
	if err := p.sink.OnSimple(t, data); err != nil {
		p.sinkErr = err
	}
}

func (p *Parser) emitAggregate(t Type, count int) {
	if p.sinkErr != nil {
		return
	}
	if err := p.sink.OnAggregate(t, count); err != nil {
		p.sinkErr = err
	}
}

func (p *Parser) emitEnd() {
	// OnEnd is delivered even after an adapter error so composite sinks
	// can keep their frame accounting straight.
	if err := p.sink.OnEnd(); err != nil && p.sinkErr == nil {
		p.sinkErr = err
	}
}

func parseDecimal(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: missing count", ErrInvalidHeader)
	}

	n := 0
	neg := false
	for i, c := range b {
		if c == '-' && i == 0 {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: invalid character %q in count %q", ErrInvalidHeader, c, b)
		}
		if n >= 1<<60 {
			return 0, fmt.Errorf("%w: count %q out of range", ErrInvalidHeader, b)
		}
		n = n*10 + int(c-'0')
	}

	if neg {
		if len(b) == 1 {
			return 0, fmt.Errorf("%w: missing count", ErrInvalidHeader)
		}
		n = -n
	}

	return n, nil
}
