package corpus

import (
	"time"

	"connect6_datagen/internal/domain/board"
)

const SchemaVersion = 1

// TrainingExample is a (state, policy, outcome) triple. Outcome is +1 when
// the player to move in State went on to win, -1 otherwise.
type TrainingExample struct {
	State   board.Board
	Policy  []float64
	Outcome int8
}

// EpisodeEntry is one buffered position of a rollout before its result is known.
type EpisodeEntry struct {
	State  board.Board
	Mover  board.Player
	Policy []float64
}

type EpisodeRecord struct {
	Entries []EpisodeEntry
}

func (r *EpisodeRecord) Add(state board.Board, mover board.Player, policy []float64) {
	r.Entries = append(r.Entries, EpisodeEntry{State: state, Mover: mover, Policy: policy})
}

// Label converts the buffer into examples once the winner is known.
func (r *EpisodeRecord) Label(winner board.Player) []TrainingExample {
	out := make([]TrainingExample, 0, len(r.Entries))
	for _, e := range r.Entries {
		outcome := int8(-1)
		if e.Mover == winner {
			outcome = 1
		}
		out = append(out, TrainingExample{State: e.State, Policy: e.Policy, Outcome: outcome})
	}
	return out
}

type Header struct {
	SchemaVersion int       `json:"schema_version" bson:"schema_version"`
	RunID         string    `json:"run_id" bson:"run_id"`
	BoardSize     int       `json:"board_size" bson:"board_size"`
	ConnectLength int       `json:"connect_length" bson:"connect_length"`
	Episodes      int       `json:"episodes" bson:"episodes"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	Generator     string    `json:"generator,omitempty" bson:"generator,omitempty"`
}

// Corpus is the unit persisted once per generation run.
type Corpus struct {
	Header   Header
	Examples []TrainingExample
}

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Progress is the live view of a generation run.
type Progress struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	Status    string    `json:"status" bson:"status"`
	Target    int       `json:"target" bson:"target"`
	Submitted int       `json:"submitted" bson:"submitted"`
	Completed int       `json:"completed" bson:"completed"`
	Discarded int       `json:"discarded" bson:"discarded"`
	Failed    int       `json:"failed" bson:"failed"`
	Examples  int       `json:"examples" bson:"examples"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt time.Time `json:"started_at" bson:"started_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// GameRecord is the move list of one decisive episode.
type GameRecord struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	TaskIndex int       `json:"task_index" bson:"task_index"`
	Seed      int64     `json:"seed" bson:"seed"`
	BoardSize int       `json:"board_size" bson:"board_size"`
	Winner    int       `json:"winner" bson:"winner"`
	Plies     int       `json:"plies" bson:"plies"`
	Moves     []int     `json:"moves" bson:"moves"`
	SGF       string    `json:"sgf" bson:"sgf"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
