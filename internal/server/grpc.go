package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCHealthServer serves the standard gRPC health protocol for
// orchestrators. service is reported under its own name and under "".
func NewGRPCHealthServer(service string, logger *zap.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(logger),
		recoveryInterceptor(logger),
	))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// DefaultHealthInterval is used when WatchHealth gets a non-positive interval.
const DefaultHealthInterval = 15 * time.Second

// WatchHealth flips the gRPC serving status according to checks until ctx
// is done.
func WatchHealth(ctx context.Context, hs *health.Server, service string, interval time.Duration, checks map[string]HealthCheck, logger *zap.Logger) {
	if interval <= 0 {
		logger.Warn("Non-positive health check interval, using default",
			zap.Duration("interval", interval),
			zap.Duration("default", DefaultHealthInterval),
		)
		interval = DefaultHealthInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			resp := CheckHealth(ctx, checks)
			if resp.Healthy == serving {
				continue
			}
			serving = resp.Healthy

			status := grpc_health_v1.HealthCheckResponse_SERVING
			if !serving {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
				logger.Warn("Service unhealthy", zap.Any("dependencies", resp.Dependencies))
			} else {
				logger.Info("Service healthy again")
			}
			hs.SetServingStatus(service, status)
			hs.SetServingStatus("", status)
		}
	}
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
		}

		if err != nil {
			fields = append(fields, zap.Error(err))
			log.Error("gRPC call failed", fields...)
		} else {
			log.Debug("gRPC call", fields...)
		}

		return resp, err
	}
}

func recoveryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
				)
				err = fmt.Errorf("internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
