package board

// Key is a comparable, hashable encoding of a position, usable as a map key
// for transposition tables or example de-duplication.
type Key string

func (b Board) Key() Key {
	buf := make([]byte, 0, len(b.cells)+2)
	buf = append(buf, byte(b.n>>8), byte(b.n))
	for _, c := range b.cells {
		buf = append(buf, byte(c))
	}
	return Key(buf)
}

// Bytes encodes the cells as two's-complement bytes in row-major order.
func (b Board) Bytes() []byte {
	buf := make([]byte, len(b.cells))
	for i, c := range b.cells {
		buf[i] = byte(c)
	}
	return buf
}

func FromBytes(n int, raw []byte) (Board, error) {
	cells := make([]Player, len(raw))
	for i, v := range raw {
		cells[i] = Player(int8(v))
	}
	return FromCells(n, cells)
}
