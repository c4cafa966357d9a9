package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"
)

const requestReadTimeout = 5 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener close.
// Each connection carries one request line and receives one response line.
func Serve(ctx context.Context, listener net.Listener, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			serveConn(ctx, c, handler, logger)
		}(conn)
	}
}

func serveConn(ctx context.Context, c net.Conn, handler Handler, logger *slog.Logger) {
	_ = c.SetReadDeadline(time.Now().Add(requestReadTimeout))

	line, err := readLine(c)
	if err != nil {
		_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	started := time.Now()
	resp := safeHandle(ctx, handler, req, logger)
	logger.Debug("ipc request handled",
		"command", req.Command,
		"ok", resp.OK,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	_ = json.NewEncoder(c).Encode(resp)
}

// safeHandle keeps a panicking handler from taking down the daemon.
func safeHandle(ctx context.Context, handler Handler, req Request, logger *slog.Logger) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ipc handler panic", "command", req.Command, "panic", fmt.Sprint(r))
			resp = Response{OK: false, Error: fmt.Sprintf("internal error handling %q", req.Command)}
		}
	}()
	return handler.Handle(ctx, req)
}
