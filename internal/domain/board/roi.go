package board

// Region is a half-open rectangle [RowMin, RowMax) x [ColMin, ColMax).
type Region struct {
	RowMin int `json:"row_min"`
	RowMax int `json:"row_max"`
	ColMin int `json:"col_min"`
	ColMax int `json:"col_max"`
}

func FullRegion(b Board) Region {
	return Region{RowMin: 0, RowMax: b.n, ColMin: 0, ColMax: b.n}
}

// Around is the square of the given radius centred on (row, col), unclipped.
func Around(row, col, radius int) Region {
	return Region{
		RowMin: row - radius,
		RowMax: row + radius + 1,
		ColMin: col - radius,
		ColMax: col + radius + 1,
	}
}

func (r Region) Clip(n int) Region {
	return Region{
		RowMin: max(0, r.RowMin),
		RowMax: min(n, r.RowMax),
		ColMin: max(0, r.ColMin),
		ColMax: min(n, r.ColMax),
	}
}

func (r Region) Contains(row, col int) bool {
	return row >= r.RowMin && row < r.RowMax && col >= r.ColMin && col < r.ColMax
}

func (r Region) Empty() bool {
	return r.RowMin >= r.RowMax || r.ColMin >= r.ColMax
}

// Center is the middle cell, biased toward the origin on even sizes.
func (b Board) Center() (int, int) {
	return b.n / 2, b.n / 2
}

// LegalRegion is the bounding box of all stones widened by margin and clipped
// to the board. An empty board yields the opening window of openingRadius
// around the center instead.
func LegalRegion(b Board, margin, openingRadius int) Region {
	minR, maxR, minC, maxC := b.n, -1, b.n, -1
	for i, c := range b.cells {
		if c == Empty {
			continue
		}
		row, col := i/b.n, i%b.n
		minR = min(minR, row)
		maxR = max(maxR, row)
		minC = min(minC, col)
		maxC = max(maxC, col)
	}
	if maxR < 0 {
		cr, cc := b.Center()
		return Around(cr, cc, openingRadius).Clip(b.n)
	}
	return Region{
		RowMin: minR - margin,
		RowMax: maxR + margin + 1,
		ColMin: minC - margin,
		ColMax: maxC + margin + 1,
	}.Clip(b.n)
}

// MaskedLegalMoves lists empty cells inside LegalRegion in row-major order,
// falling back to every empty cell when the region holds none.
func MaskedLegalMoves(b Board, margin, openingRadius int) []Action {
	region := LegalRegion(b, margin, openingRadius)
	moves := make([]Action, 0, (region.RowMax-region.RowMin)*(region.ColMax-region.ColMin))
	for r := region.RowMin; r < region.RowMax; r++ {
		for c := region.ColMin; c < region.ColMax; c++ {
			if b.At(r, c) == Empty {
				moves = append(moves, b.ActionOf(r, c))
			}
		}
	}
	if len(moves) == 0 {
		return b.LegalMoves()
	}
	return moves
}
