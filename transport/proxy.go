// Package transport implements a small TCP echo proxy: every line a
// client sends is round-tripped through a backend via an Echoer and the
// reply is written back. It exists mostly as a workout for client.Conn
// under many concurrent callers.
package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Proxy struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*Listener

	echoer Echoer

	log *zap.Logger
}

func NewProxy(options Options) *Proxy {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	return &Proxy{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: numListeners,
		listeners:    make([]*Listener, 0, numListeners),
		echoer:       options.Echoer,
		log:          options.Log,
	}
}

func (p *Proxy) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	p.cancel = cancel

	p.log.Info("Starting proxy listeners", zap.Int("count", p.numListeners))

	for i := 0; i < p.numListeners; i++ {
		p.startListener(ctx, p.addr)
	}

	return nil
}

func (p *Proxy) startListener(ctx context.Context, addr string) {
	p.stopWaiter.Add(1)
	listener := NewListener(
		ctx,
		addr,
		p.echoer,
		p.log.Named("listener").With(zap.Int("listener", len(p.listeners))),
	)

	p.listeners = append(p.listeners, listener)

	go func() {
		defer p.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			p.log.Error("Failed to listen", zap.Error(err))
		}
	}()
}

// Close immediately closes all active listeners and connections.
func (p *Proxy) Close() error {
	p.log.Info("Stopping proxy")
	p.cancel()

	var err error
	for _, listener := range p.listeners {
		err = multierr.Append(err, listener.Close())
	}

	p.stopWaiter.Wait()

	return err
}

type Listener struct {
	ctx context.Context

	addr string
	log  *zap.Logger

	mu          sync.Mutex
	activeConns map[net.Conn]struct{}

	echoer Echoer
}

func NewListener(
	ctx context.Context,
	addr string,
	echoer Echoer,
	log *zap.Logger,
) *Listener {
	return &Listener{
		ctx:         ctx,
		activeConns: make(map[net.Conn]struct{}),
		addr:        addr,
		echoer:      echoer,
		log:         log,
	}
}

func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for conn := range l.activeConns {
		err = multierr.Append(err, conn.Close())
		delete(l.activeConns, conn)
	}

	return err
}

func (l *Listener) Listen() error {
	listener, err := reuseport.Listen("tcp", l.addr)
	if err != nil {
		return err
	}

	defer listener.Close()

	var loopWaiter sync.WaitGroup

	go func() {
		<-l.ctx.Done()

		l.log.Info("Closing listener")
		if err := listener.Close(); err != nil {
			l.log.Warn("Listener did not close cleanly", zap.Error(err))
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			l.log.Info("Stopped accepting new connections")
			loopWaiter.Wait()
			l.log.Info("Listener stopped")
			return nil

		default:
			conn, err := listener.Accept()
			if err != nil {
				netOpError := new(net.OpError)

				if errors.As(err, &netOpError) && netOpError.Unwrap().Error() == "use of closed network connection" {
					// The listener was closed while we were waiting for
					// new connections, that's fine.
					loopWaiter.Wait()
					return nil
				}

				return err
			}

			l.addConn(conn)

			loopWaiter.Add(1)
			go func() {
				defer loopWaiter.Done()
				defer l.removeConn(conn)
				l.serve(conn)
			}()
		}
	}
}

// serve forwards each line through the echoer and writes the reply back.
// The session ends when the client goes away or the backend fails.
func (l *Listener) serve(conn net.Conn) {
	log := l.log.Named("conn").With(zap.String("remote", conn.RemoteAddr().String()))

	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("Failed to close connection cleanly", zap.Error(err))
		}
	}()

	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		select {
		case <-l.ctx.Done():
			log.Info("Context cancelled, exiting...")
			return
		default:
		}

		reply, err := l.echoer.Echo(l.ctx, scanner.Text())
		if err != nil {
			log.Warn("Backend echo failed", zap.Error(err))
			return
		}

		if _, err := conn.Write(append([]byte(reply), '\n')); err != nil {
			log.Warn("Failed to write reply", zap.Error(err))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Warn("Failed to read client line", zap.Error(err))
	}
}

func (l *Listener) addConn(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.activeConns[conn] = struct{}{}
}

func (l *Listener) removeConn(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.activeConns, conn)
}
