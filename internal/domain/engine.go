package domain

// Position is the wire form of a board and the side to move.
// Cells are row-major: 1 for player A, -1 for player B, 0 for empty.
type Position struct {
	Size   int    `json:"size"`
	Cells  []int8 `json:"cells"`
	Player int8   `json:"player"`
}

type InitialStateRequest struct {
	Size int `json:"size"`
}

type InitialStateResponse struct {
	Position   Position `json:"position"`
	Rows       int      `json:"rows"`
	Cols       int      `json:"cols"`
	ActionSize int      `json:"action_size"`
}

type ApplyMoveRequest struct {
	Position Position `json:"position"`
	Action   int      `json:"action"`
}

type ApplyMoveResponse struct {
	Position Position `json:"position"`
	Value    float64  `json:"value"`
}

type LegalActionsResponse struct {
	Mask    []bool `json:"mask"`
	Actions []int  `json:"actions"`
}

type TerminalValueResponse struct {
	Value    float64 `json:"value"`
	Decisive bool    `json:"decisive"`
	Draw     bool    `json:"draw"`
}

type CanonicalFormResponse struct {
	Position Position `json:"position"`
}

type SymmetriesRequest struct {
	Position Position  `json:"position"`
	Policy   []float64 `json:"policy"`
}

type SymmetryPair struct {
	Cells  []int8    `json:"cells"`
	Policy []float64 `json:"policy"`
}

type SymmetriesResponse struct {
	Symmetries []SymmetryPair `json:"symmetries"`
}

type KeyResponse struct {
	Key string `json:"key"`
}

type SuggestMoveRequest struct {
	Position Position `json:"position"`
	Seed     int64    `json:"seed"`
}

type SuggestMoveResponse struct {
	Action int     `json:"action"`
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}
