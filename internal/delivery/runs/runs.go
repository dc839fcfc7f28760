package runs

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/httpresponse"
	runsUC "connect6_datagen/internal/usecase/runs"
	"connect6_datagen/internal/utils"
)

const defaultGamesPage = 50

type GameReader interface {
	GetGame(ctx context.Context, runID string, taskIndex int) (corpus.GameRecord, error)
	ListGames(ctx context.Context, runID string, limit int) ([]corpus.GameRecord, error)
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
}

type RunsHandler struct {
	log    *zap.SugaredLogger
	runsUC *runsUC.RunUseCase
	games  GameReader
	hub    *ProgressHub
}

// NewRunsHandler wires the run endpoints. games may be nil when no game
// record store is configured.
func NewRunsHandler(log *zap.SugaredLogger, uc *runsUC.RunUseCase, games GameReader, hub *ProgressHub) *RunsHandler {
	return &RunsHandler{
		log:    log,
		runsUC: uc,
		games:  games,
		hub:    hub,
	}
}

func (h *RunsHandler) Routes(r chi.Router) {
	r.Post("/runs", h.HandleStartRun)
	r.Get("/runs/{runID}", h.HandleGetRun)
	r.Delete("/runs/{runID}", h.HandleCancelRun)
	r.Get("/runs/{runID}/ws", h.HandleRunProgressWS)
	r.Get("/runs/{runID}/games", h.HandleListGames)
	r.Get("/runs/{runID}/games/{index}", h.HandleGetGame)
}

// HandleStartRun godoc
// @Summary Start a self-play generation run
// @Tags runs
// @Accept json
// @Produce json
// @Param request body runs.Request false "overrides"
// @Success 202 {object} StartRunResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /runs [post]
func (h *RunsHandler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req runsUC.Request
	if r.ContentLength != 0 {
		if err := utils.DecodeJSONRequest(r, &req); err != nil {
			httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	runID, err := h.runsUC.Start(req)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidConfig) {
			httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Errorf("start run: %v", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	h.log.Infof("run %s started", runID)
	httpresponse.WriteResponseWithStatus(w, http.StatusAccepted, StartRunResponse{RunID: runID})
}

// HandleGetRun godoc
// @Summary Run progress and summary
// @Tags runs
// @Produce json
// @Param runID path string true "run id"
// @Success 200 {object} runs.Summary
// @Failure 404 {object} httpresponse.ErrorResponse
// @Router /runs/{runID} [get]
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	summary, err := h.runsUC.Status(r.Context(), runID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, summary)
}

func (h *RunsHandler) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := h.runsUC.Cancel(runID); err != nil {
		h.writeErr(w, err)
		return
	}
	h.log.Infof("run %s cancelled", runID)
	httpresponse.WriteResponseWithStatus(w, http.StatusAccepted, StartRunResponse{RunID: runID})
}

// HandleRunProgressWS streams progress messages of one run over a websocket.
func (h *RunsHandler) HandleRunProgressWS(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var snapshot *corpus.Progress
	if summary, err := h.runsUC.Status(r.Context(), runID); err == nil {
		snapshot = &summary.Progress
	}
	h.hub.Serve(w, r, runID, snapshot)
}

func (h *RunsHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	if h.games == nil {
		h.writeErr(w, errs.ErrStoreUnavailable)
		return
	}
	limit := defaultGamesPage
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpresponse.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	games, err := h.games.ListGames(r.Context(), chi.URLParam(r, "runID"), limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, games)
}

// HandleGetGame returns one game record, or its raw SGF with ?format=sgf.
func (h *RunsHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	if h.games == nil {
		h.writeErr(w, errs.ErrStoreUnavailable)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, "game index must be an integer")
		return
	}
	game, err := h.games.GetGame(r.Context(), chi.URLParam(r, "runID"), index)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if r.URL.Query().Get("format") == "sgf" {
		w.Header().Set("Content-Type", "application/x-go-sgf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(game.SGF))
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game)
}

func (h *RunsHandler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrRunNotFound), errors.Is(err, errs.ErrGameRecordNotFound):
		httpresponse.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrStoreUnavailable):
		httpresponse.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Errorf("runs request failed: %v", err)
		httpresponse.WriteInternalErrorResponse(w)
	}
}
