package board

import "testing"

func samplePosition(n int) (Board, []float64) {
	b := New(n)
	b.Set(0, 1, PlayerA)
	b.Set(1, 3, PlayerB)
	b.Set(n-1, 0, PlayerA)
	policy := make([]float64, n*n+1)
	policy[b.ActionOf(2, 1)] = 0.75
	policy[b.ActionOf(0, n-1)] = 0.125
	policy[n*n] = 0.125
	return b, policy
}

func TestExpandProducesEightDistinctTransforms(t *testing.T) {
	b, policy := samplePosition(5)
	syms, err := Expand(b, policy)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(syms) != 8 {
		t.Fatalf("expected 8 symmetries, got %d", len(syms))
	}
	seen := make(map[Key]bool)
	for _, s := range syms {
		seen[s.Board.Key()] = true
		if s.Policy[25] != policy[25] {
			t.Fatalf("pass weight changed: %v", s.Policy[25])
		}
	}
	if len(seen) != 8 {
		t.Fatalf("asymmetric position should give 8 distinct boards, got %d", len(seen))
	}
}

func TestExpandKeepsPolicyAlignedWithBoard(t *testing.T) {
	n := 6
	b := New(n)
	marked := b.ActionOf(1, 4)
	b.Set(1, 4, PlayerA)
	policy := make([]float64, n*n+1)
	policy[marked] = 1
	for _, tr := range Transforms() {
		tb := tr.Board(b)
		tp, err := tr.Policy(n, policy)
		if err != nil {
			t.Fatalf("Policy: %v", err)
		}
		for i, w := range tp[:n*n] {
			if (w == 1) != (tb.AtAction(Action(i)) == PlayerA) {
				t.Fatalf("transform %+v misaligned policy at %d", tr, i)
			}
		}
		if tr.Action(n, marked) != firstStone(tb) {
			t.Fatalf("Action mapping disagrees with Board mapping for %+v", tr)
		}
	}
}

func firstStone(b Board) Action {
	for i, c := range b.cells {
		if c != Empty {
			return Action(i)
		}
	}
	return -1
}

func TestTransformRoundTrip(t *testing.T) {
	b, policy := samplePosition(7)
	for _, tr := range Transforms() {
		back := tr.InvertBoard(tr.Board(b))
		if !back.Equal(b) {
			t.Fatalf("board round trip failed for %+v", tr)
		}
		fwd, err := tr.Policy(7, policy)
		if err != nil {
			t.Fatalf("Policy: %v", err)
		}
		inv, err := tr.InvertPolicy(7, fwd)
		if err != nil {
			t.Fatalf("InvertPolicy: %v", err)
		}
		for i := range policy {
			if inv[i] != policy[i] {
				t.Fatalf("policy round trip failed for %+v at %d", tr, i)
			}
		}
	}
}

func TestQuarterTurnIsCounterClockwise(t *testing.T) {
	b := New(3)
	b.Set(0, 2, PlayerA)
	got := Transform{Turns: 1}.Board(b)
	if got.At(0, 0) != PlayerA {
		t.Fatalf("top-right corner should rotate to top-left:\n%s", got)
	}
	if !(Transform{Turns: 4}).Board(b).Equal(b) {
		t.Fatalf("four quarter turns should be the identity")
	}
}

func TestPolicyLengthChecked(t *testing.T) {
	if _, err := Expand(New(3), make([]float64, 9)); err == nil {
		t.Fatalf("expected error for policy without pass entry")
	}
}
