package client

import (
	"context"

	"github.com/luma/lumen/adapter"
	"github.com/luma/lumen/protocol"
)

// Convenience wrappers for the common one-shot commands. Anything more
// involved, pipelines, transactions, custom adapters, goes through Exec
// directly.

func (c *Conn) Ping(ctx context.Context) error {
	req := protocol.NewRequest()
	if err := req.Push(protocol.PING); err != nil {
		return err
	}
	return c.Exec(ctx, req, adapter.Ignore())
}

func (c *Conn) Echo(ctx context.Context, msg string) (string, error) {
	req := protocol.NewRequest()
	if err := req.Push(protocol.ECHO, msg); err != nil {
		return "", err
	}

	var resp string
	err := c.Exec(ctx, req, adapter.String(&resp))
	return resp, err
}

func (c *Conn) Get(ctx context.Context, key string) (*string, error) {
	req := protocol.NewRequest()
	if err := req.Push(protocol.GET, key); err != nil {
		return nil, err
	}

	var value *string
	err := c.Exec(ctx, req, adapter.Adapt(&value))
	return value, err
}

func (c *Conn) Set(ctx context.Context, key string, value []byte) error {
	req := protocol.NewRequest()
	if err := req.Push(protocol.SET, key, value); err != nil {
		return err
	}
	return c.Exec(ctx, req, adapter.Ignore())
}

// Subscribe registers interest in the given channels. The confirmations
// and the messages themselves arrive as pushes through Receive.
func (c *Conn) Subscribe(ctx context.Context, channels ...string) error {
	req := protocol.NewRequest()
	args := make([]interface{}, 0, len(channels))
	for _, ch := range channels {
		args = append(args, ch)
	}
	if err := req.Push(protocol.SUBSCRIBE, args...); err != nil {
		return err
	}
	return c.Exec(ctx, req, adapter.Ignore())
}

// Quit asks the server to close the connection. The connection's Run
// call returns nil once the server follows through.
func (c *Conn) Quit(ctx context.Context) error {
	req := protocol.NewRequest()
	if err := req.Push(protocol.QUIT); err != nil {
		return err
	}
	return c.Exec(ctx, req, adapter.Ignore())
}
