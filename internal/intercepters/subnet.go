package intercepters

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const RealIPKey contextKey = "real-ip"

// SubnetIPInterceptor copies the x-real-ip metadata value into the context.
func SubnetIPInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if ip := realIP(ctx); ip != "" {
		ctx = context.WithValue(ctx, RealIPKey, ip)
	}
	return handler(ctx, req)
}

// WithTrustedSubnet rejects calls to the listed methods unless the address
// stored under RealIPKey lies inside subnet. It must run after
// SubnetIPInterceptor. An empty or invalid subnet rejects every such call.
func WithTrustedSubnet(subnet string, methods ...string) grpc.UnaryServerInterceptor {
	_, ipNet, parseErr := net.ParseCIDR(subnet)

	guarded := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		guarded[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := guarded[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		addr, _ := ctx.Value(RealIPKey).(string)
		ip := net.ParseIP(addr)
		if parseErr != nil || ip == nil || !ipNet.Contains(ip) {
			return nil, status.Error(codes.PermissionDenied, "address is not in the trusted subnet")
		}
		return handler(ctx, req)
	}
}

func realIP(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ips := md.Get("x-real-ip"); len(ips) > 0 {
		return ips[0]
	}
	return ""
}
