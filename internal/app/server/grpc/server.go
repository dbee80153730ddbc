// Package grpc exposes the URL service over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/intercepters"
	"github.com/atinyakov/shortlink/internal/middleware"
	"github.com/atinyakov/shortlink/internal/models"
)

// Server wraps the gRPC server and dependencies.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	addr       string
	service    service.URLServiceIface
	logger     *zap.Logger
}

// New creates a gRPC server that serves the shortener and the standard
// health service. Delete requires a bearer token; Stats is limited to
// trustedSubnet.
func New(addr, trustedSubnet string, svc service.URLServiceIface, auth service.AuthIface, logger *zap.Logger) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(
				intercepters.InterceptorLogger(logger),
				logging.WithLogOnEvents(logging.FinishCall),
			),
			intercepters.SubnetIPInterceptor,
			intercepters.WithTrustedSubnet(trustedSubnet, MethodStats),
			intercepters.WithJWT(auth, MethodDelete),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	RegisterShortenerServer(s, &shortenerServer{service: svc, logger: logger})

	return &Server{
		grpcServer: s,
		health:     hs,
		addr:       addr,
		service:    svc,
		logger:     logger,
	}
}

// Start listens on the configured address and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("gRPC server failed to listen", zap.String("addr", s.addr), zap.Error(err))
		return err
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// CheckHealth pings the store and publishes the result through the health
// service, both for the shortener and for the server as a whole.
func (s *Server) CheckHealth(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.service.PingContext(ctx); err != nil {
		s.logger.Warn("store is not reachable", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// WatchHealth runs CheckHealth every interval until ctx is done.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		s.CheckHealth(pingCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// GracefulStop marks the server as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

type shortenerServer struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func (s *shortenerServer) Shorten(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	u, err := s.service.Shorten(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return s.record(u)
}

func (s *shortenerServer) Resolve(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	longURL, ok, err := s.service.Resolve(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, "URL not found")
	}
	return wrapperspb.String(longURL), nil
}

func (s *shortenerServer) Delete(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error) {
	deleted, err := s.service.Delete(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if !deleted {
		return nil, status.Errorf(codes.NotFound, "url %d not found", in.GetValue())
	}

	user, _ := middleware.User(ctx)
	s.logger.Info("url deleted over gRPC", zap.Int64("id", in.GetValue()), zap.String("user", user))
	return wrapperspb.Bool(true), nil
}

func (s *shortenerServer) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	urls, err := s.service.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"urls": len(urls)})
}

func (s *shortenerServer) record(u *models.URL) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]any{
		"id":         u.ID,
		"short_code": u.ShortCode,
		"long_url":   u.LongURL,
		"short_url":  s.service.ShortURL(u.ShortCode),
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

// toStatus maps an error kind to a gRPC status. Only validation and lookup
// messages reach the caller verbatim.
func toStatus(err error) error {
	var e *errx.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal error")
	}

	switch e.Kind {
	case errx.Invalid:
		return status.Error(codes.InvalidArgument, e.Err.Error())
	case errx.NotFound:
		return status.Error(codes.NotFound, e.Err.Error())
	case errx.Conflict, errx.DuplicateCode:
		return status.Error(codes.AlreadyExists, "short code is already in use")
	case errx.Exhausted:
		return status.Error(codes.ResourceExhausted, "could not allocate a short code, try again later")
	case errx.Unavailable:
		return status.Error(codes.Unavailable, "service temporarily unavailable, try again later")
	case errx.Unauthorized:
		return status.Error(codes.Unauthenticated, "invalid credentials")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
