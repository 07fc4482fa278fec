package transport

import (
	"context"

	"go.uber.org/zap"
)

// Echoer answers one line of client input, normally by round-tripping it
// through a Redis server. client.Conn satisfies it via ECHO.
type Echoer interface {
	Echo(ctx context.Context, msg string) (string, error)
}

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// NumListeners controls how many SO_REUSEPORT listeners share the
	// port. Defaults to the number of CPUs.
	NumListeners int

	// Echoer answers the proxied lines.
	Echoer Echoer

	Log *zap.Logger
}
