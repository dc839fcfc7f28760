package board

import "fmt"

// Transform is Turns counter-clockwise quarter turns followed by an optional
// left-right mirror.
type Transform struct {
	Turns int  `json:"turns"`
	Flip  bool `json:"flip"`
}

// Transforms lists the 8 dihedral transforms in expansion order.
func Transforms() []Transform {
	out := make([]Transform, 0, 8)
	for turns := 1; turns <= 4; turns++ {
		for _, flip := range [2]bool{true, false} {
			out = append(out, Transform{Turns: turns, Flip: flip})
		}
	}
	return out
}

func (t Transform) dest(n, row, col int) (int, int) {
	for i := 0; i < t.Turns%4; i++ {
		row, col = n-1-col, row
	}
	if t.Flip {
		col = n - 1 - col
	}
	return row, col
}

func (t Transform) permutation(n int) []int {
	perm := make([]int, n*n)
	for i := range perm {
		r, c := t.dest(n, i/n, i%n)
		perm[i] = r*n + c
	}
	return perm
}

func (t Transform) Board(b Board) Board {
	out := New(b.n)
	for i, dst := range t.permutation(b.n) {
		out.cells[dst] = b.cells[i]
	}
	return out
}

// Policy maps the positional entries of a length n²+1 vector; the pass entry
// is carried over unchanged.
func (t Transform) Policy(n int, policy []float64) ([]float64, error) {
	if len(policy) != n*n+1 {
		return nil, fmt.Errorf("policy length %d, want %d", len(policy), n*n+1)
	}
	out := make([]float64, len(policy))
	for i, dst := range t.permutation(n) {
		out[dst] = policy[i]
	}
	out[n*n] = policy[n*n]
	return out, nil
}

func (t Transform) InvertBoard(b Board) Board {
	out := New(b.n)
	for i, dst := range t.permutation(b.n) {
		out.cells[i] = b.cells[dst]
	}
	return out
}

func (t Transform) InvertPolicy(n int, policy []float64) ([]float64, error) {
	if len(policy) != n*n+1 {
		return nil, fmt.Errorf("policy length %d, want %d", len(policy), n*n+1)
	}
	out := make([]float64, len(policy))
	for i, dst := range t.permutation(n) {
		out[i] = policy[dst]
	}
	out[n*n] = policy[n*n]
	return out, nil
}

// Action maps a single action; the pass action is fixed.
func (t Transform) Action(n int, a Action) Action {
	if int(a) == n*n {
		return a
	}
	r, c := t.dest(n, int(a)/n, int(a)%n)
	return Action(r*n + c)
}

type Symmetry struct {
	Board  Board
	Policy []float64
}

// Expand returns the 8 transformed (board, policy) pairs.
func Expand(b Board, policy []float64) ([]Symmetry, error) {
	transforms := Transforms()
	out := make([]Symmetry, 0, len(transforms))
	for _, t := range transforms {
		p, err := t.Policy(b.n, policy)
		if err != nil {
			return nil, err
		}
		out = append(out, Symmetry{Board: t.Board(b), Policy: p})
	}
	return out, nil
}
