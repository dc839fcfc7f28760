package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
	"connect6_datagen/internal/usecase/generator"
	"connect6_datagen/internal/usecase/heuristic"
	runsUC "connect6_datagen/internal/usecase/runs"
	"connect6_datagen/internal/usecase/selfplay"
)

type discardWriter struct{}

func (discardWriter) Save(context.Context, corpus.Corpus) error { return nil }

type fakeGames struct{}

func (fakeGames) GetGame(_ context.Context, runID string, index int) (corpus.GameRecord, error) {
	if index != 0 {
		return corpus.GameRecord{}, errs.ErrGameRecordNotFound
	}
	return corpus.GameRecord{RunID: runID, SGF: "(;FF[4]GM[12]SZ[9])"}, nil
}

func (fakeGames) ListGames(_ context.Context, runID string, limit int) ([]corpus.GameRecord, error) {
	return []corpus.GameRecord{{RunID: runID}}, nil
}

type envelope[T any] struct {
	Status int `json:"Status"`
	Body   T   `json:"Body"`
}

func newServer(t *testing.T, games GameReader) (*httptest.Server, *ProgressHub) {
	log := zap.NewNop().Sugar()
	hub := NewProgressHub(log)
	settings := runsUC.Settings{
		SelfPlay:  selfplay.Config{BoardSize: 9, PlyCap: 81, Heuristic: heuristic.DefaultConfig()},
		Generator: generator.Options{Target: 1, Oversubscription: 10, Workers: 2},
	}
	uc := runsUC.NewRunUseCase(settings, func(string) []runsUC.CorpusWriter {
		return []runsUC.CorpusWriter{discardWriter{}}
	}, log, runsUC.WithSinks(hub))

	r := chi.NewRouter()
	NewRunsHandler(log, uc, games, hub).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func waitCompleted(t *testing.T, srv *httptest.Server, runID string) runsUC.Summary {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/runs/" + runID)
		if err != nil {
			t.Fatal(err)
		}
		var got envelope[runsUC.Summary]
		_ = json.NewDecoder(resp.Body).Decode(&got)
		resp.Body.Close()
		if got.Body.Progress.Status == corpus.StatusCompleted {
			return got.Body
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("run %s did not complete", runID)
	return runsUC.Summary{}
}

func startRun(t *testing.T, srv *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/runs", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("start run: %d %s", resp.StatusCode, raw)
	}
	var started envelope[StartRunResponse]
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatal(err)
	}
	return started.Body.RunID
}

func TestStartRunAndStreamProgress(t *testing.T) {
	srv, hub := newServer(t, nil)
	runID := startRun(t, srv, `{"target": 1}`)
	summary := waitCompleted(t, srv, runID)
	if summary.Progress.Completed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/" + runID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var p corpus.Progress
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "progress" || p.RunID != runID || p.Status != corpus.StatusCompleted {
		t.Fatalf("unexpected snapshot %s %+v", msg.Type, p)
	}

	for hub.Subscribers(runID) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(context.Background(), corpus.Progress{RunID: runID, Status: corpus.StatusRunning, Completed: 7})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	_ = json.Unmarshal(msg.Payload, &p)
	if p.Completed != 7 {
		t.Fatalf("expected pushed update, got %+v", p)
	}
}

func TestRunErrors(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/runs/unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown run: %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/runs", "application/json", bytes.NewBufferString(`{"oversubscription": 0.2}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad overrides: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/runs/x/games")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("games without store: %d", resp.StatusCode)
	}
}

func TestGameEndpoints(t *testing.T) {
	srv, _ := newServer(t, fakeGames{})

	resp, err := http.Get(srv.URL + "/runs/r1/games/0?format=sgf")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(raw) != "(;FF[4]GM[12]SZ[9])" {
		t.Fatalf("sgf download: %d %s", resp.StatusCode, raw)
	}

	resp, err = http.Get(srv.URL + "/runs/r1/games/3")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing game: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/runs/r1/games?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", resp.StatusCode)
	}
}
