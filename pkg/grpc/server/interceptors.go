package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// LoggingInterceptor creates a gRPC unary interceptor for request/response logging.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)
		logCompletion(logger, info.FullMethod, peerAddr(ctx), time.Since(start), err)

		return resp, err
	}
}

// StreamLoggingInterceptor logs streaming calls such as health Watch when
// they end.
func StreamLoggingInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		err := handler(srv, ss)
		logCompletion(logger, info.FullMethod, peerAddr(ss.Context()), time.Since(start), err)

		return err
	}
}

func logCompletion(logger *zap.Logger, method, addr string, duration time.Duration, err error) {
	if err != nil {
		st, _ := status.FromError(err)
		logger.Error("gRPC request failed",
			zap.String("method", method),
			zap.String("client_addr", addr),
			zap.Duration("duration", duration),
			zap.String("status_code", st.Code().String()),
			zap.String("status_message", st.Message()))
		return
	}
	logger.Info("gRPC request completed",
		zap.String("method", method),
		zap.String("client_addr", addr),
		zap.Duration("duration", duration),
		zap.String("status_code", codes.OK.String()))
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
