package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"connect6_datagen/internal/bootstrap"
	engineUC "connect6_datagen/internal/usecase/engine"
	"connect6_datagen/microservices/rpc"
	"connect6_datagen/microservices/usecase"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Errorw("Failed to setup configuration", zap.Error(err))
		return
	}

	lis, err := net.Listen("tcp", cfg.EngineGrpcAddr)
	if err != nil {
		logger.Fatalf("cant listen on %s: %v", cfg.EngineGrpcAddr, err)
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(usecase.RecoveryInterceptor(logger)))
	engine := engineUC.NewEngineUseCase(cfg.Heuristic())
	rpc.RegisterEngineServiceServer(server, usecase.NewEngineRPC(engine, logger))

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info("Received shutdown signal")
		server.GracefulStop()
	}()

	logger.Infof("engine service %s listening on %s", rpc.ServiceName, cfg.EngineGrpcAddr)
	if err := server.Serve(lis); err != nil {
		logger.Fatalf("grpc server stopped: %v", err)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return logger.Sugar()
}
