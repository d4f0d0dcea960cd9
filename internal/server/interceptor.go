package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/pdfjson/internal/common"
)

const requestIDHeader = "x-request-id"

// UnaryLogging tags each call with a request id (taken from x-request-id
// metadata when present) and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestIDHeader); len(v) > 0 {
				reqID = v[0]
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}

		log := logger.With("request_id", reqID, "method", info.FullMethod)
		ctx = common.WithRequestID(ctx, reqID)
		ctx = common.WithLogger(ctx, log)

		resp, err := handler(ctx, req)
		code := status.Code(err)
		if err != nil {
			log.Warn("grpc.call.failed", "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		} else {
			log.Info("grpc.call.ok", "duration_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
