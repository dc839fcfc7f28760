package board

// Outcome is the result of a terminal check: the winning player's value,
// Ongoing while moves remain, or the Draw sentinel.
type Outcome float64

const (
	Ongoing Outcome = 0
	Draw    Outcome = 1e-4
)

func (o Outcome) Decisive() bool {
	return o == Outcome(PlayerA) || o == Outcome(PlayerB)
}

// Winner is only meaningful for decisive outcomes.
func (o Outcome) Winner() Player {
	switch o {
	case Outcome(PlayerA):
		return PlayerA
	case Outcome(PlayerB):
		return PlayerB
	}
	return Empty
}

// Relative flips a decisive outcome to the point of view of player.
func (o Outcome) Relative(player Player) Outcome {
	if o.Decisive() {
		return o * Outcome(player)
	}
	return o
}

var lineDirections = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Detector finds runs of ConnectLength identical stones.
type Detector struct {
	ConnectLength int
}

func NewDetector(connectLength int) Detector {
	return Detector{ConnectLength: connectLength}
}

// Evaluate scans the whole board.
func (d Detector) Evaluate(b Board) Outcome {
	if w := d.scan(b, FullRegion(b)); w != Empty {
		return Outcome(w)
	}
	if b.HasLegalMoves() {
		return Ongoing
	}
	return Draw
}

// EvaluateRegion only considers runs lying entirely inside region. It never
// reports Draw.
func (d Detector) EvaluateRegion(b Board, region Region) Outcome {
	return Outcome(d.scan(b, region.Clip(b.n)))
}

func (d Detector) scan(b Board, region Region) Player {
	l := d.ConnectLength
	if l <= 0 {
		return Empty
	}
	for r := region.RowMin; r < region.RowMax; r++ {
		for c := region.ColMin; c < region.ColMax; c++ {
			first := b.At(r, c)
			if first == Empty {
				continue
			}
			for _, dir := range lineDirections {
				endR := r + dir[0]*(l-1)
				endC := c + dir[1]*(l-1)
				if !region.Contains(endR, endC) {
					continue
				}
				k := 1
				for ; k < l; k++ {
					if b.At(r+dir[0]*k, c+dir[1]*k) != first {
						break
					}
				}
				if k == l {
					return first
				}
			}
		}
	}
	return Empty
}

// WinsAt reports whether the stone at a is part of a complete run.
func (d Detector) WinsAt(b Board, a Action) bool {
	stone := b.AtAction(a)
	if stone == Empty || d.ConnectLength <= 0 {
		return false
	}
	row, col := b.Coords(a)
	for _, dir := range lineDirections {
		count := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row+sign*dir[0], col+sign*dir[1]
			for b.InBounds(r, c) && b.At(r, c) == stone {
				count++
				r += sign * dir[0]
				c += sign * dir[1]
			}
		}
		if count >= d.ConnectLength {
			return true
		}
	}
	return false
}
