package board

import (
	"fmt"

	"connect6_datagen/internal/errors"
)

// Player is the value stored in a cell. Empty cells hold 0.
type Player int8

const (
	Empty   Player = 0
	PlayerA Player = 1
	PlayerB Player = -1
)

func (p Player) Opponent() Player {
	return -p
}

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	default:
		return "."
	}
}

// MaxSize bounds the side length of boards built from untrusted input.
const MaxSize = 64

// ValidSize reports whether n is an acceptable side length.
func ValidSize(n int) bool {
	return n >= 1 && n <= MaxSize
}

// Action is a row-major cell index in [0, n²) or the pass action n².
type Action int

// Board is an n×n grid in row-major order.
type Board struct {
	n     int
	cells []Player
}

func New(n int) Board {
	return Board{n: n, cells: make([]Player, n*n)}
}

// FromCells builds a board from a row-major cell slice of length n².
func FromCells(n int, cells []Player) (Board, error) {
	if !ValidSize(n) {
		return Board{}, fmt.Errorf("board size %d outside [1, %d]", n, MaxSize)
	}
	if len(cells) != n*n {
		return Board{}, fmt.Errorf("board of size %d needs %d cells, got %d", n, n*n, len(cells))
	}
	b := New(n)
	for i, c := range cells {
		if c != Empty && c != PlayerA && c != PlayerB {
			return Board{}, fmt.Errorf("cell %d holds invalid value %d", i, c)
		}
		b.cells[i] = c
	}
	return b, nil
}

func (b Board) Size() int {
	return b.n
}

func (b Board) Shape() (int, int) {
	return b.n, b.n
}

func (b Board) ActionSize() int {
	return b.n*b.n + 1
}

func (b Board) PassAction() Action {
	return Action(b.n * b.n)
}

func (b Board) Cells() []Player {
	out := make([]Player, len(b.cells))
	copy(out, b.cells)
	return out
}

func (b Board) At(row, col int) Player {
	return b.cells[row*b.n+col]
}

func (b Board) AtAction(a Action) Player {
	return b.cells[a]
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < b.n && col < b.n
}

func (b Board) ActionOf(row, col int) Action {
	return Action(row*b.n + col)
}

func (b Board) Coords(a Action) (row, col int) {
	return int(a) / b.n, int(a) % b.n
}

func (b Board) Clone() Board {
	clone := Board{n: b.n, cells: make([]Player, len(b.cells))}
	copy(clone.cells, b.cells)
	return clone
}

// Set writes a cell without legality checks. Used to build positions.
func (b *Board) Set(row, col int, p Player) {
	b.cells[row*b.n+col] = p
}

// Play places player's stone in place. The pass action leaves the grid untouched.
func (b *Board) Play(a Action, player Player) error {
	if a == b.PassAction() {
		return nil
	}
	if a < 0 || int(a) >= len(b.cells) {
		return fmt.Errorf("action %d outside [0, %d]: %w", a, b.PassAction(), errors.ErrIllegalMove)
	}
	if b.cells[a] != Empty {
		row, col := b.Coords(a)
		return fmt.Errorf("cell (%d,%d) is occupied: %w", row, col, errors.ErrIllegalMove)
	}
	b.cells[a] = player
	return nil
}

// Apply returns a copy of b with player's stone placed at a.
func (b Board) Apply(a Action, player Player) (Board, error) {
	next := b.Clone()
	if err := next.Play(a, player); err != nil {
		return Board{}, err
	}
	return next, nil
}

func (b Board) StoneCount() int {
	count := 0
	for _, c := range b.cells {
		if c != Empty {
			count++
		}
	}
	return count
}

func (b Board) IsEmpty() bool {
	for _, c := range b.cells {
		if c != Empty {
			return false
		}
	}
	return true
}

// TurnAfter returns the side to move once player has placed a stone.
// An odd stone total hands control to the opponent, an even total keeps it.
func (b Board) TurnAfter(player Player) Player {
	if b.StoneCount()%2 != 0 {
		return player.Opponent()
	}
	return player
}

// Next applies a and returns the resulting board and side to move.
// Passing never changes the stone count and always swaps the mover.
func (b Board) Next(a Action, player Player) (Board, Player, error) {
	if a == b.PassAction() {
		return b.Clone(), player.Opponent(), nil
	}
	next, err := b.Apply(a, player)
	if err != nil {
		return Board{}, player, err
	}
	return next, next.TurnAfter(player), nil
}

func (b Board) LegalMoves() []Action {
	moves := make([]Action, 0, len(b.cells))
	for i, c := range b.cells {
		if c == Empty {
			moves = append(moves, Action(i))
		}
	}
	return moves
}

func (b Board) HasLegalMoves() bool {
	for _, c := range b.cells {
		if c == Empty {
			return true
		}
	}
	return false
}

// Canonical scales the board by player so the side to move reads as +1.
func (b Board) Canonical(player Player) Board {
	out := Board{n: b.n, cells: make([]Player, len(b.cells))}
	for i, c := range b.cells {
		out.cells[i] = c * player
	}
	return out
}

func (b Board) Equal(o Board) bool {
	if b.n != o.n {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

func (b Board) String() string {
	buf := make([]byte, 0, b.n*(b.n+1))
	for r := 0; r < b.n; r++ {
		for c := 0; c < b.n; c++ {
			switch b.At(r, c) {
			case PlayerA:
				buf = append(buf, 'X')
			case PlayerB:
				buf = append(buf, 'O')
			default:
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
