package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"connect6_datagen/internal/domain"
	errs "connect6_datagen/internal/errors"
	engineUC "connect6_datagen/internal/usecase/engine"
)

// EngineRPC serves the engine use case over gRPC.
type EngineRPC struct {
	engine *engineUC.EngineUseCase
	log    *zap.SugaredLogger
}

func NewEngineRPC(engine *engineUC.EngineUseCase, log *zap.SugaredLogger) *EngineRPC {
	return &EngineRPC{
		engine: engine,
		log:    log,
	}
}

func (e *EngineRPC) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, errs.ErrIllegalMove), errors.Is(err, errs.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		e.log.Errorf("%s: %v", method, err)
		return status.Error(codes.Internal, errs.ErrInternal.Error())
	}
}

func (e *EngineRPC) Initial(_ context.Context, in *domain.InitialStateRequest) (*domain.InitialStateResponse, error) {
	resp, err := e.engine.Initial(*in)
	if err != nil {
		return nil, e.toStatus("Initial", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Apply(_ context.Context, in *domain.ApplyMoveRequest) (*domain.ApplyMoveResponse, error) {
	resp, err := e.engine.Apply(*in)
	if err != nil {
		return nil, e.toStatus("Apply", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Legal(_ context.Context, in *domain.Position) (*domain.LegalActionsResponse, error) {
	resp, err := e.engine.Legal(*in)
	if err != nil {
		return nil, e.toStatus("Legal", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Terminal(_ context.Context, in *domain.Position) (*domain.TerminalValueResponse, error) {
	resp, err := e.engine.Terminal(*in)
	if err != nil {
		return nil, e.toStatus("Terminal", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Canonical(_ context.Context, in *domain.Position) (*domain.CanonicalFormResponse, error) {
	resp, err := e.engine.Canonical(*in)
	if err != nil {
		return nil, e.toStatus("Canonical", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Symmetries(_ context.Context, in *domain.SymmetriesRequest) (*domain.SymmetriesResponse, error) {
	resp, err := e.engine.Symmetric(*in)
	if err != nil {
		return nil, e.toStatus("Symmetries", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Key(_ context.Context, in *domain.Position) (*domain.KeyResponse, error) {
	resp, err := e.engine.Key(*in)
	if err != nil {
		return nil, e.toStatus("Key", err)
	}
	return &resp, nil
}

func (e *EngineRPC) Suggest(_ context.Context, in *domain.SuggestMoveRequest) (*domain.SuggestMoveResponse, error) {
	resp, err := e.engine.Suggest(*in)
	if err != nil {
		return nil, e.toStatus("Suggest", err)
	}
	return &resp, nil
}
