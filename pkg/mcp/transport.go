package mcp

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// Transport is the underlying message transport used by the MCP client. Each
// Send and Receive carries one complete JSON-RPC message.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// NewStreamTransport frames messages with Content-Length headers over the
// given streams. It is the transport used for spawned stdio servers and for
// in-process servers wired over pipes.
func NewStreamTransport(in io.WriteCloser, out io.ReadCloser) Transport {
	return &streamTransport{
		reader:    bufio.NewReader(out),
		writer:    in,
		inCloser:  in,
		outCloser: out,
	}
}

type streamTransport struct {
	reader    *bufio.Reader
	writer    io.Writer
	inCloser  io.Closer
	outCloser io.Closer
	writeMu   sync.Mutex
}

func (t *streamTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return writeFrame(t.writer, payload)
}

func (t *streamTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readFrame(t.reader)
}

func (t *streamTransport) Close() error {
	var err error
	if t.inCloser != nil {
		if e := t.inCloser.Close(); e != nil {
			err = e
		}
	}
	if t.outCloser != nil {
		if e := t.outCloser.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
