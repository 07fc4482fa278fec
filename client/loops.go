package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/lumen/adapter"
	"github.com/luma/lumen/protocol"
)

// frameReader owns the read buffer and runs the parser over it, pulling
// more bytes from the stream only when the current frame needs them.
type frameReader struct {
	stream  Stream
	buf     []byte
	scratch []byte
	parser  protocol.Parser
}

func newFrameReader(stream Stream) *frameReader {
	return &frameReader{
		stream:  stream,
		scratch: make([]byte, 4096),
	}
}

func (r *frameReader) fill() error {
	n, err := r.stream.Read(r.scratch)
	if n > 0 {
		r.buf = append(r.buf, r.scratch[:n]...)
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return err
}

func (r *frameReader) consume(n int) {
	r.buf = r.buf[:copy(r.buf, r.buf[n:])]
}

// peekType returns the tag byte of the next frame without consuming it.
func (r *frameReader) peekType() (protocol.Type, error) {
	for len(r.buf) == 0 {
		if err := r.fill(); err != nil {
			return protocol.TypeInvalid, err
		}
	}
	return protocol.ToType(r.buf[0]), nil
}

// readFrame decodes exactly one top-level value into sink. The first
// return value carries the adapter's error for the frame, the second a
// fatal transport or protocol error.
func (r *frameReader) readFrame(sink protocol.Adapter) (sinkErr, fatal error) {
	r.parser.Reset(sink)

	for {
		n, err := r.parser.Advance(r.buf)
		r.consume(n)
		if err != nil {
			return nil, err
		}
		if r.parser.Done() {
			return r.parser.Err(), nil
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

func (c *Conn) readLoop(ctx context.Context) {
	log := c.log.Named("readLoop")

	c.mu.Lock()
	r := newFrameReader(c.stream)
	c.mu.Unlock()

	// Commands queued in the current MULTI block, multi itself first.
	var trans []protocol.Command

	for {
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, exiting...")
			return
		default:
		}

		t, err := r.peekType()
		if err != nil {
			if errors.Is(err, io.EOF) && c.pendingEmpty() {
				log.Info("Server closed the connection, exiting...")
				return
			}
			c.failUnlessStopping(ctx, c.readError(err))
			return
		}

		if t == protocol.TypePush {
			if fatal := c.handlePush(r, log); fatal != nil {
				c.failUnlessStopping(ctx, fatal)
				return
			}
			continue
		}

		head, cmd, ok := c.headCommand()
		if !ok {
			log.Warn("Server sent a response with nothing pending",
				zap.String("type", t.String()))
			c.fail(ErrUnsolicitedResponse)
			return
		}

		var fatal error
		switch {
		case cmd == protocol.MULTI:
			fatal = c.onMulti(r, head, &trans)

		case cmd == protocol.EXEC:
			fatal = c.onExec(r, head, &trans)

		case cmd == protocol.DISCARD:
			fatal = c.onDiscard(r, head, &trans)

		case len(trans) > 0:
			// Queued inside the transaction, the server acknowledges
			// with +QUEUED.
			fatal = c.onResponse(r, head)
			if fatal == nil {
				trans = append(trans, cmd)
			}

		default:
			fatal = c.onResponse(r, head)
		}

		if fatal != nil {
			c.failUnlessStopping(ctx, fatal)
			return
		}
	}
}

// readError classifies low-level read failures. EOF in the middle of the
// response stream means the server vanished with requests outstanding.
func (c *Conn) readError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (c *Conn) pendingEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) == 0
}

// headCommand returns the front pending request and its next command tag.
func (c *Conn) headCommand() (*pendingExec, protocol.Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 || len(c.pending[0].tags) == 0 {
		return nil, "", false
	}
	return c.pending[0], c.pending[0].tags[0], true
}

func (c *Conn) sinkFor(e *pendingExec) protocol.Adapter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.detached {
		return adapter.Ignore()
	}
	return e.sink
}

// recordSinkErr notes a per-response error on the request. Server
// reported errors also update the last-error text.
func (c *Conn) recordSinkErr(e *pendingExec, sinkErr error) {
	if sinkErr == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if errors.Is(sinkErr, adapter.ErrSimpleError) || errors.Is(sinkErr, adapter.ErrBlobError) {
		c.lastSrvErr = sinkErr.Error()
	}
	if !e.detached {
		e.errs = multierr.Append(e.errs, sinkErr)
	}
}

// popTag consumes the front tag of e and completes the request when it
// was the last one. The writer is woken so the next queued request can go
// out.
func (c *Conn) popTag(e *pendingExec) {
	c.mu.Lock()
	e.tags = e.tags[1:]
	finished := len(e.tags) == 0
	if finished {
		c.completeFront()
	}
	c.mu.Unlock()

	if finished {
		c.wakeWriter()
	}
}

// onResponse is the ordinary path: one top-level frame for the head
// command.
func (c *Conn) onResponse(r *frameReader, e *pendingExec) error {
	sinkErr, fatal := r.readFrame(c.sinkFor(e))
	if fatal != nil {
		return fatal
	}
	c.recordSinkErr(e, sinkErr)
	c.popTag(e)
	return nil
}

// onMulti expects the +OK acknowledgement and opens the transaction
// sub-queue. A server error leaves the transaction closed.
func (c *Conn) onMulti(r *frameReader, e *pendingExec, trans *[]protocol.Command) error {
	sinkErr, fatal := r.readFrame(c.sinkFor(e))
	if fatal != nil {
		return fatal
	}
	c.recordSinkErr(e, sinkErr)
	if sinkErr == nil {
		*trans = append((*trans)[:0], protocol.MULTI)
	}
	c.popTag(e)
	return nil
}

// onExec consumes the transaction's array response. The elements arrive
// as children of one envelope array; the adapter (see adapter.Trans)
// dispatches them to the queued commands' sinks in issue order. A null
// response is an aborted transaction.
func (c *Conn) onExec(r *frameReader, e *pendingExec, trans *[]protocol.Command) error {
	*trans = (*trans)[:0]
	return c.onResponse(r, e)
}

// onDiscard pops the transaction sub-queue back to the last MULTI. A
// bare DISCARD outside any transaction fails that command's response
// with ErrUnexpected and drains the server's reply.
func (c *Conn) onDiscard(r *frameReader, e *pendingExec, trans *[]protocol.Command) error {
	if len(*trans) > 0 {
		*trans = (*trans)[:0]
		return c.onResponse(r, e)
	}

	if _, fatal := r.readFrame(adapter.Ignore()); fatal != nil {
		return fatal
	}

	sink := c.sinkFor(e)
	// Keep composite sinks aligned: the discard still occupies one
	// response slot.
	_ = sink.OnEnd()

	c.recordSinkErr(e, fmt.Errorf("%w: DISCARD without MULTI", adapter.ErrUnexpected))
	c.popTag(e)
	return nil
}

// handlePush routes a push frame to the oldest waiting receiver, or
// records it in the push buffer when nobody is listening.
func (c *Conn) handlePush(r *frameReader, log *zap.Logger) error {
	c.mu.Lock()
	var rcv *pendingReceive
	if len(c.receivers) > 0 {
		rcv = c.receivers[0]
		c.receivers = c.receivers[1:]
	}
	c.mu.Unlock()

	if rcv != nil {
		sinkErr, fatal := r.readFrame(rcv.sink)
		if fatal != nil {
			rcv.err = fatal
			close(rcv.done)
			return fatal
		}
		rcv.err = sinkErr
		close(rcv.done)
		return nil
	}

	var nodes []protocol.Node
	sinkErr, fatal := r.readFrame(adapter.Nodes(&nodes))
	if fatal != nil {
		return fatal
	}
	if sinkErr != nil {
		log.Warn("Failed to buffer server push", zap.Error(sinkErr))
		return nil
	}

	c.mu.Lock()
	if len(c.pushes) == PushBufferSize {
		c.pushes = c.pushes[1:]
		log.Warn("Push buffer full, dropping oldest push")
	}
	c.pushes = append(c.pushes, nodes)
	c.mu.Unlock()

	return nil
}

func (c *Conn) writeLoop(ctx context.Context) {
	log := c.log.Named("writeLoop")

	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, exiting...")
			return
		case <-c.wake:
		}

		for {
			c.mu.Lock()
			var e *pendingExec
			// Only the front request may be written; the next one goes
			// out once all of the front's responses have been consumed.
			if len(c.pending) > 0 && !c.pending[0].written {
				e = c.pending[0]
				// Committed to the wire from here on. A cancellation
				// racing the write must detach and drain, not dequeue,
				// and the payload buffer must stay untouched.
				e.written = true
			}
			payload := []byte(nil)
			if e != nil {
				payload = e.payload
			}
			c.mu.Unlock()

			if e == nil {
				break
			}

			if _, err := stream.Write(payload); err != nil {
				log.Warn("Failed to write request", zap.Error(err))
				c.failUnlessStopping(ctx, err)
				return
			}

			c.mu.Lock()
			// Fully on the wire now, awaiting responses.
			e.payload = nil
			fireAndForget := len(e.tags) == 0
			if fireAndForget {
				c.completeFront()
			}
			c.mu.Unlock()

			if !fireAndForget {
				break
			}
		}
	}
}
