package engine

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/httpresponse"
	engineUC "connect6_datagen/internal/usecase/engine"
	"connect6_datagen/internal/utils"
)

type EngineHandler struct {
	log      *zap.SugaredLogger
	engineUC *engineUC.EngineUseCase
}

func NewEngineHandler(log *zap.SugaredLogger, uc *engineUC.EngineUseCase) *EngineHandler {
	return &EngineHandler{
		log:      log,
		engineUC: uc,
	}
}

func (h *EngineHandler) Routes(r chi.Router) {
	r.Post("/engine/initial", h.HandleInitial)
	r.Post("/engine/apply", h.HandleApply)
	r.Post("/engine/legal", h.HandleLegal)
	r.Post("/engine/terminal", h.HandleTerminal)
	r.Post("/engine/canonical", h.HandleCanonical)
	r.Post("/engine/symmetries", h.HandleSymmetries)
	r.Post("/engine/key", h.HandleKey)
	r.Post("/engine/suggest", h.HandleSuggest)
}

// HandleInitial godoc
// @Summary Empty board
// @Tags engine
// @Accept json
// @Produce json
// @Param request body domain.InitialStateRequest true "board size"
// @Success 200 {object} domain.InitialStateResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /engine/initial [post]
func (h *EngineHandler) HandleInitial(w http.ResponseWriter, r *http.Request) {
	var req domain.InitialStateRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Initial(req)
	h.respond(w, resp, err)
}

// HandleApply godoc
// @Summary Apply one action under the parity turn rule
// @Tags engine
// @Accept json
// @Produce json
// @Param request body domain.ApplyMoveRequest true "position and action"
// @Success 200 {object} domain.ApplyMoveResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /engine/apply [post]
func (h *EngineHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyMoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Apply(req)
	h.respond(w, resp, err)
}

// HandleLegal godoc
// @Summary Legal action mask restricted to the region of interest
// @Tags engine
// @Accept json
// @Produce json
// @Param request body domain.Position true "position"
// @Success 200 {object} domain.LegalActionsResponse
// @Router /engine/legal [post]
func (h *EngineHandler) HandleLegal(w http.ResponseWriter, r *http.Request) {
	var req domain.Position
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Legal(req)
	h.respond(w, resp, err)
}

// HandleTerminal godoc
// @Summary Game result from the side to move
// @Tags engine
// @Accept json
// @Produce json
// @Param request body domain.Position true "position"
// @Success 200 {object} domain.TerminalValueResponse
// @Router /engine/terminal [post]
func (h *EngineHandler) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	var req domain.Position
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Terminal(req)
	h.respond(w, resp, err)
}

func (h *EngineHandler) HandleCanonical(w http.ResponseWriter, r *http.Request) {
	var req domain.Position
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Canonical(req)
	h.respond(w, resp, err)
}

func (h *EngineHandler) HandleSymmetries(w http.ResponseWriter, r *http.Request) {
	var req domain.SymmetriesRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Symmetric(req)
	h.respond(w, resp, err)
}

func (h *EngineHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var req domain.Position
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Key(req)
	h.respond(w, resp, err)
}

// HandleSuggest godoc
// @Summary Heuristic move for the side to move
// @Tags engine
// @Accept json
// @Produce json
// @Param request body domain.SuggestMoveRequest true "position and seed"
// @Success 200 {object} domain.SuggestMoveResponse
// @Router /engine/suggest [post]
func (h *EngineHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	var req domain.SuggestMoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.engineUC.Suggest(req)
	h.respond(w, resp, err)
}

func (h *EngineHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := utils.DecodeJSONRequest(r, dst); err != nil {
		h.log.Debugf("bad engine request: %v", err)
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *EngineHandler) respond(w http.ResponseWriter, body any, err error) {
	switch {
	case err == nil:
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, body)
	case errors.Is(err, errs.ErrIllegalMove), errors.Is(err, errs.ErrInvalidConfig):
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Errorf("engine request failed: %v", err)
		httpresponse.WriteInternalErrorResponse(w)
	}
}
