package client

import (
	"errors"
	"io"
)

var (
	// ErrNotConnected is returned when submitting work to a connection
	// that is not running.
	ErrNotConnected = errors.New("connection is not running")

	// ErrOperationAborted is returned when an operation is cancelled or
	// the connection is torn down underneath it.
	ErrOperationAborted = errors.New("operation aborted")

	// ErrAlreadyRunning is returned by Run when the connection is being
	// driven by another call.
	ErrAlreadyRunning = errors.New("connection is already running")

	// ErrUnsolicitedResponse is the fatal error raised when the server
	// sends a non-push frame with no request awaiting a response.
	ErrUnsolicitedResponse = errors.New("response frame with no pending request")
)

// Stream is the duplex byte stream a connection runs over. Any reliable
// ordered byte stream works, net.Conn being the usual one; tests use
// net.Pipe.
//
// Close must unblock concurrent Read and Write calls.
type Stream interface {
	io.Reader
	io.Writer
	Close() error
}
