package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	// requestReadTimeout drops clients that connect but never send a line.
	requestReadTimeout = 2 * time.Second
	// maxRequestBytes bounds one request line, typed text included.
	maxRequestBytes = 64 << 10
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until ctx is cancelled or the listener
// closes. In-flight requests finish and get their reply before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	req, err := readRequest(conn)
	if err != nil {
		reply(conn, Response{OK: false, Error: err.Error()})
		return
	}

	// Handlers may block for a full capture and translation; only the
	// initial read is deadline-bound.
	_ = conn.SetDeadline(time.Time{})
	reply(conn, handler.Handle(ctx, req))
}

func readRequest(conn net.Conn) (Request, error) {
	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))

	reader := bufio.NewReader(io.LimitReader(conn, maxRequestBytes))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == maxRequestBytes {
			return Request{}, fmt.Errorf("read request: exceeds %d bytes", maxRequestBytes)
		}
		return Request{}, fmt.Errorf("read request: %v", err)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %v", err)
	}
	return req, nil
}

func reply(conn net.Conn, resp Response) {
	_ = json.NewEncoder(conn).Encode(resp)
}
