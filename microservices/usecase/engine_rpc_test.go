package usecase

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"connect6_datagen/internal/domain"
	engineUC "connect6_datagen/internal/usecase/engine"
	"connect6_datagen/internal/usecase/heuristic"
	"connect6_datagen/microservices/rpc"
)

func dialEngine(t *testing.T) rpc.EngineServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	log := zaptest.NewLogger(t).Sugar()
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(log)))
	rpc.RegisterEngineServiceServer(server, NewEngineRPC(engineUC.NewEngineUseCase(heuristic.DefaultConfig()), log))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewEngineServiceClient(conn)
}

func TestEngineOverGRPC(t *testing.T) {
	client := dialEngine(t)
	ctx := context.Background()

	initial, err := client.Initial(ctx, &domain.InitialStateRequest{Size: 19})
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}
	if initial.ActionSize != 362 {
		t.Fatalf("action size %d", initial.ActionSize)
	}

	applied, err := client.Apply(ctx, &domain.ApplyMoveRequest{Position: initial.Position, Action: 180})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Position.Player != -1 || applied.Value != 0 {
		t.Fatalf("unexpected apply response %+v", applied)
	}

	syms, err := client.Symmetries(ctx, &domain.SymmetriesRequest{Position: applied.Position})
	if err != nil {
		t.Fatalf("Symmetries: %v", err)
	}
	if len(syms.Symmetries) != 8 {
		t.Fatalf("expected 8 symmetries, got %d", len(syms.Symmetries))
	}

	legal, err := client.Legal(ctx, &applied.Position)
	if err != nil {
		t.Fatalf("Legal: %v", err)
	}
	// 7x7 window around the center stone, minus the stone itself
	if len(legal.Actions) != 48 {
		t.Fatalf("expected 48 legal actions, got %d", len(legal.Actions))
	}
}

func TestIllegalMoveIsInvalidArgument(t *testing.T) {
	client := dialEngine(t)
	ctx := context.Background()
	initial, err := client.Initial(ctx, &domain.InitialStateRequest{Size: 9})
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}
	_, err = client.Apply(ctx, &domain.ApplyMoveRequest{Position: initial.Position, Action: 500})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestOversizedBoardIsInvalidArgument(t *testing.T) {
	client := dialEngine(t)
	_, err := client.Initial(context.Background(), &domain.InitialStateRequest{Size: 20000000})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestRecoveryInterceptorReportsInternal(t *testing.T) {
	intercept := RecoveryInterceptor(zaptest.NewLogger(t).Sugar())
	info := &grpc.UnaryServerInfo{FullMethod: "/" + rpc.ServiceName + "/Initial"}
	resp, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("makeslice: len out of range")
	})
	if resp != nil || status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal status, got %v, %v", resp, err)
	}

	resp, err = intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	if resp != "ok" || err != nil {
		t.Fatalf("handler result should pass through, got %v, %v", resp, err)
	}
}
