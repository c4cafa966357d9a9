// Package rpc exposes board commands and change notifications over gRPC.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"

	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "tilebuddy.v1.Board"

const watchBuffer = 64

// Watcher delivers store change notifications.
type Watcher interface {
	Subscribe(func(store.Change)) func()
}

// boardService is the server-side contract registered with grpc.
type boardService interface {
	Call(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStream) error
}

var boardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*boardService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "tilebuddy/v1/board.proto",
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(boardService).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Call"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(boardService).Call(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(boardService).Watch(in, stream)
}

// Server serves the Board service and the standard health service.
type Server struct {
	logger  *slog.Logger
	handler ipc.Handler
	watcher Watcher

	grpc   *grpc.Server
	health *health.Server

	// stopping ends open Watch streams so GracefulStop can return.
	stopping chan struct{}
	stopOnce sync.Once
}

// NewServer builds a gRPC server dispatching Call to handler and Watch to watcher.
func NewServer(logger *slog.Logger, handler ipc.Handler, watcher Watcher) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	s := &Server{
		logger:   logger,
		handler:  handler,
		watcher:  watcher,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		stopping: make(chan struct{}),
	}
	s.grpc.RegisterService(&boardServiceDesc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing flips the health status reported for the Board service.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on listener until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.stopOnce.Do(func() { close(s.stopping) })
		s.grpc.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve grpc: %w", err)
	}
}

// Call runs one board command.
func (s *Server) Call(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp := s.handler.Handle(ctx, req)
	out, err := encodeResponse(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Watch streams store changes until the client goes away. Slow clients miss changes
// rather than stall mutations; the seq gap tells them to refetch.
func (s *Server) Watch(_ *structpb.Struct, stream grpc.ServerStream) error {
	if s.watcher == nil {
		return status.Error(codes.Unimplemented, "watch is not available")
	}

	events := make(chan store.Change, watchBuffer)
	unsubscribe := s.watcher.Subscribe(func(change store.Change) {
		select {
		case events <- change:
		default:
			s.logger.Warn("dropping change for slow watcher", "op", change.Op, "seq", change.Seq)
		}
	})
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return nil
		case change := <-events:
			msg, err := encodeChange(change)
			if err != nil {
				return status.Errorf(codes.Internal, "encode change: %v", err)
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
