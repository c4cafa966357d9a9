package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/rpc"
	"github.com/daxxac/talk-tile-buddy/internal/store"
)

// commandServe runs the board daemon until ctx is cancelled.
func (r Runner) commandServe(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v on %s\n", err, socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	board, err := openBoard(loaded, logger, r.Feedback)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Error("close board failed", "error", err.Error())
		}
	}()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	servers := 1
	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, board.controller, logger)
	}()

	var grpcServer *rpc.Server
	if grpcCfg := loaded.Config.GRPC; grpcCfg.Enable {
		grpcListener, err := net.Listen("tcp", grpcCfg.Listen)
		if err != nil {
			serverCancel()
			<-serverErrCh
			fmt.Fprintf(r.Stderr, "error: listen grpc %s: %v\n", grpcCfg.Listen, err)
			return 1
		}
		grpcServer = rpc.NewServer(logger, board.controller, board.controller)
		servers++
		go func() {
			serverErrCh <- grpcServer.Serve(serverCtx, grpcListener)
		}()
		logger.Info("grpc listening", "address", grpcListener.Addr().String())
	}

	result := board.boot.Run(ctx)
	logBootstrapResult(logger, result)
	if grpcServer != nil {
		grpcServer.SetServing(result.State.Ready())
		// reset and import can recover a failed bootstrap
		unsubscribe := board.controller.Subscribe(func(store.Change) {
			grpcServer.SetServing(board.controller.State().Ready())
		})
		defer unsubscribe()
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "warning: board bootstrap failed: %v; reset or import to recover\n", result.Err)
	}

	logger.Info("daemon ready", "socket", socketPath, "state", board.controller.State())
	if r.Ready != nil {
		r.Ready(socketPath)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serverErrCh:
		servers--
	}
	serverCancel()
	for ; servers > 0; servers-- {
		if err := <-serverErrCh; err != nil && serveErr == nil {
			serveErr = err
		}
	}

	if serveErr != nil {
		logger.Error("daemon server failed", "error", serveErr.Error())
		fmt.Fprintf(r.Stderr, "error: server failed: %v\n", serveErr)
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}
