package usecase

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	errs "connect6_datagen/internal/errors"
)

// RecoveryInterceptor turns a handler panic into an Internal status so a
// single request cannot take the server down.
func RecoveryInterceptor(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Errorf("%s panicked: %v\n%s", info.FullMethod, p, debug.Stack())
				resp, err = nil, status.Error(codes.Internal, errs.ErrInternal.Error())
			}
		}()
		return handler(ctx, req)
	}
}
