package console

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rmacdonaldsmith/loghub-go/internal/broadcast"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// Server exposes a hub through the LogConsole gRPC service
type Server struct {
	hub        loghub.Hub
	config     Config
	logger     *zap.Logger
	grpcServer *grpc.Server
}

// NewServer creates a console server. A nil logger is replaced with a no-op logger.
func NewServer(hub loghub.Hub, config Config, logger *zap.Logger) *Server {
	config.SetDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		hub:    hub,
		config: config,
		logger: logger.Named("console"),
	}
	s.grpcServer = grpc.NewServer(
		grpc.MaxSendMsgSize(config.MaxMessageSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: config.KeepaliveTime}),
		grpc.UnaryInterceptor(s.logUnary),
	)
	s.grpcServer.RegisterService(&ServiceDesc, s)
	return s
}

// Start listens on the configured address and serves until Stop is called
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Stop is called
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("gRPC console listening", zap.String("addr", l.Addr().String()))
	if err := s.grpcServer.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls. Open Tail streams end when ctx expires.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
}

func (s *Server) logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	s.logger.Debug("call",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()))
	return resp, err
}

// History returns every retained event
func (s *Server) History(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	events, err := s.hub.History(0)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	list := make([]interface{}, 0, len(events))
	for _, event := range events {
		list = append(list, map[string]interface{}{
			"level":   event.Level.String(),
			"message": event.Message,
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"available": true,
		"events":    list,
	})
}

// Status returns the hub snapshot
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.hub.Snapshot()
	return structpb.NewStruct(map[string]interface{}{
		"available":            snap.HistoryAvailable,
		"length":               snap.Length,
		"capacity":             snap.Capacity,
		"subscribers":          snap.Subscribers,
		"subscribersAvailable": snap.SubscribersAvailable,
	})
}

// Tail streams recorded lines until the client goes away or falls behind
func (s *Server) Tail(req *wrapperspb.BoolValue, stream TailStream) error {
	sub := broadcast.NewChanSubscriber(s.config.SubscriberBuffer)
	if err := s.hub.AddSubscriber(sub); err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer sub.Close()

	s.logger.Debug("tail opened", zap.String("subscriber", sub.ID()), zap.Bool("replay", req.GetValue()))

	if req.GetValue() {
		// History may be poisoned; the live tail still works
		events, _ := s.hub.History(0)
		for _, event := range events {
			if err := stream.Send(wrapperspb.String(event.Message)); err != nil {
				return err
			}
		}
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-sub.Messages():
			if err := stream.Send(wrapperspb.String(line)); err != nil {
				return err
			}
		case <-sub.Done():
			for {
				select {
				case line := <-sub.Messages():
					if err := stream.Send(wrapperspb.String(line)); err != nil {
						return err
					}
				default:
					return status.Error(codes.ResourceExhausted, sub.Err().Error())
				}
			}
		}
	}
}

var _ ConsoleServer = (*Server)(nil)
