package client

import (
	"context"
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/lumen/protocol"
)

const (
	// PushBufferSize bounds how many server pushes are buffered while no
	// Receive call is waiting. Older pushes are dropped first.
	PushBufferSize = 255
)

// pendingExec is one submitted request travelling through the pending
// queue: written by the writer loop, answered frame by frame by the
// reader loop, completed when its last tag is consumed.
type pendingExec struct {
	payload []byte
	tags    []protocol.Command
	sink    protocol.Adapter

	written bool

	// detached is set when the submitter gave up after the request hit
	// the wire. The responses still have to be consumed to keep the
	// stream in sync, they just go nowhere.
	detached bool

	// errs accumulates per-response adapter errors.
	errs error

	err  error
	done chan struct{}
}

type pendingReceive struct {
	sink protocol.Adapter
	err  error
	done chan struct{}
}

// Conn is a pipelined connection to a RESP3 server. It owns the stream,
// serialises outgoing requests into one wire stream and matches inbound
// responses to outstanding requests in FIFO order. Server pushes are
// delivered out-of-band through Receive.
//
// A Conn is safe for concurrent use: submissions only append to the
// pending queue and wake the writer, the loops own the stream.
type Conn struct {
	log *zap.Logger

	mu         sync.Mutex
	stream     Stream
	running    bool
	fatal      error
	pending    []*pendingExec
	receivers  []*pendingReceive
	pushes     [][]protocol.Node
	lastSrvErr string

	// wake is the writer wakeup, a counting semaphore of one.
	wake chan struct{}
}

// New returns a connection that is not yet running. Call Run (or
// RunStream) to drive it.
func New(log *zap.Logger) *Conn {
	return &Conn{
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

// Run dials addr over TCP and drives the connection until ctx is
// cancelled, the stream fails, or the server closes the connection after
// a QUIT. A clean server-initiated close returns nil.
func (c *Conn) Run(ctx context.Context, addr string) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return c.RunStream(ctx, conn)
}

// RunStream is Run over an already established stream.
func (c *Conn) RunStream(ctx context.Context, stream Stream) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.stream = stream
	c.running = true
	c.fatal = nil
	c.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var loopWaiter sync.WaitGroup
	loopWaiter.Add(2)

	go func() {
		defer loopWaiter.Done()
		defer cancel()
		c.readLoop(loopCtx)
	}()

	go func() {
		defer loopWaiter.Done()
		defer cancel()
		c.writeLoop(loopCtx)
	}()

	<-loopCtx.Done()

	// Unblocks whichever loop is parked in a stream call.
	if err := stream.Close(); err != nil {
		c.log.Warn("Stream did not close cleanly", zap.Error(err))
	}

	loopWaiter.Wait()

	return c.teardown(ctx)
}

// Exec submits a request and blocks until every in-band response has been
// consumed by sink, or ctx is cancelled. Submitting never blocks the
// loops; responses are delivered to sink in the order the commands were
// framed, one top-level frame per command tag.
//
// Cancelling before the request is written removes it from the queue.
// Once it is on the wire the responses cannot be un-sent, so the entry is
// detached instead and drained silently.
func (c *Conn) Exec(ctx context.Context, req *protocol.Request, sink protocol.Adapter) error {
	if req.Empty() {
		return nil
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotConnected
	}

	e := &pendingExec{
		payload: req.Payload(),
		tags:    append([]protocol.Command(nil), req.Tags()...),
		sink:    sink,
		done:    make(chan struct{}),
	}
	c.pending = append(c.pending, e)
	c.mu.Unlock()

	c.wakeWriter()

	select {
	case <-e.done:
		return e.err

	case <-ctx.Done():
		c.mu.Lock()
		if !e.written {
			c.removePending(e)
			c.mu.Unlock()
			return ErrOperationAborted
		}
		e.detached = true
		c.mu.Unlock()
		return ErrOperationAborted
	}
}

// Receive blocks until the next server push arrives and has been
// delivered to sink. Pushes that arrived while nobody was receiving are
// replayed from the push buffer first.
func (c *Conn) Receive(ctx context.Context, sink protocol.Adapter) error {
	c.mu.Lock()
	if len(c.pushes) > 0 {
		nodes := c.pushes[0]
		c.pushes = c.pushes[1:]
		c.mu.Unlock()
		return protocol.ReplayNodes(nodes, sink)
	}

	if !c.running {
		c.mu.Unlock()
		return ErrNotConnected
	}

	rcv := &pendingReceive{sink: sink, done: make(chan struct{})}
	c.receivers = append(c.receivers, rcv)
	c.mu.Unlock()

	select {
	case <-rcv.done:
		return rcv.err

	case <-ctx.Done():
		c.mu.Lock()
		for i, r := range c.receivers {
			if r == rcv {
				c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
				c.mu.Unlock()
				return ErrOperationAborted
			}
		}
		c.mu.Unlock()

		// The reader already claimed this receiver and is driving the
		// sink; the completion is imminent and must be honoured.
		<-rcv.done
		return rcv.err
	}
}

// LastServerError returns the diagnostic string of the most recent
// server-reported error frame.
func (c *Conn) LastServerError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSrvErr
}

func (c *Conn) wakeWriter() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// fail records the first fatal error. All pending completions are failed
// with it during teardown.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.fatal == nil {
		c.fatal = err
	}
	c.mu.Unlock()
}

// failUnlessStopping records err as fatal unless the connection is
// already shutting down, in which case the stream errors are just the
// loops being unblocked.
func (c *Conn) failUnlessStopping(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	c.fail(err)
}

// removePending drops e from the queue. Callers hold mu.
func (c *Conn) removePending(e *pendingExec) {
	for i, p := range c.pending {
		if p == e {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// complete closes out the front pending request. Callers hold mu.
func (c *Conn) completeFront() {
	e := c.pending[0]
	c.pending = c.pending[1:]
	if !e.detached {
		e.err = e.errs
	}
	close(e.done)
}

func (c *Conn) teardown(parent context.Context) error {
	c.mu.Lock()
	fatal := c.fatal
	pending := c.pending
	receivers := c.receivers
	c.pending = nil
	c.receivers = nil
	c.running = false
	c.stream = nil
	c.mu.Unlock()

	completionErr := fatal
	if completionErr == nil {
		completionErr = ErrOperationAborted
	}

	for _, e := range pending {
		e.err = multierr.Append(e.errs, completionErr)
		close(e.done)
	}
	for _, rcv := range receivers {
		rcv.err = completionErr
		close(rcv.done)
	}

	if fatal != nil {
		return fatal
	}
	if parent.Err() != nil {
		return ErrOperationAborted
	}

	// Server-initiated close after QUIT.
	return nil
}
