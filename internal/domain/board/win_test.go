package board

import "testing"

func TestSixInRowWinsRegardlessOfOtherContent(t *testing.T) {
	b := New(19)
	for c := 5; c <= 10; c++ {
		b.Set(5, c, PlayerA)
	}
	b.Set(0, 0, PlayerB)
	b.Set(18, 18, PlayerB)
	b.Set(6, 6, PlayerB)
	if got := NewDetector(6).Evaluate(b); got != Outcome(PlayerA) {
		t.Fatalf("expected PlayerA win, got %v", got)
	}
}

func TestWinDirections(t *testing.T) {
	cases := []struct {
		name  string
		cells [][2]int
	}{
		{"horizontal", [][2]int{{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4}, {2, 5}}},
		{"vertical", [][2]int{{0, 7}, {1, 7}, {2, 7}, {3, 7}, {4, 7}, {5, 7}}},
		{"diagonal", [][2]int{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}}},
		{"anti-diagonal", [][2]int{{0, 8}, {1, 7}, {2, 6}, {3, 5}, {4, 4}, {5, 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New(9)
			for _, rc := range tc.cells {
				b.Set(rc[0], rc[1], PlayerB)
			}
			if got := NewDetector(6).Evaluate(b); got != Outcome(PlayerB) {
				t.Fatalf("expected PlayerB win, got %v", got)
			}
			last := b.ActionOf(tc.cells[5][0], tc.cells[5][1])
			if !NewDetector(6).WinsAt(b, last) {
				t.Fatalf("WinsAt should report the run through the last stone")
			}
		})
	}
}

func TestFiveIsNotEnough(t *testing.T) {
	b := New(9)
	for c := 0; c < 5; c++ {
		b.Set(4, c, PlayerA)
	}
	if got := NewDetector(6).Evaluate(b); got != Ongoing {
		t.Fatalf("expected ongoing, got %v", got)
	}
}

func TestFullBoardWithoutRunIsDraw(t *testing.T) {
	// Pairs of columns alternate colours, so no row, column or diagonal
	// ever holds more than two equal stones in a row.
	b := New(8)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := PlayerA
			if ((c/2)+r)%2 == 1 {
				p = PlayerB
			}
			b.Set(r, c, p)
		}
	}
	got := NewDetector(6).Evaluate(b)
	if got != Draw {
		t.Fatalf("expected Draw sentinel, got %v\n%s", got, b)
	}
	if got == Ongoing {
		t.Fatalf("Draw must differ from Ongoing")
	}
}

func TestEvaluateRegionMatchesFullScanNearCell(t *testing.T) {
	b := New(12)
	for r := 3; r < 9; r++ {
		b.Set(r, 11-r, PlayerA)
	}
	d := NewDetector(6)
	region := Around(5, 6, 5)
	if got := d.EvaluateRegion(b, region); got != Outcome(PlayerA) {
		t.Fatalf("region scan missed the run, got %v", got)
	}
	if got := d.EvaluateRegion(b, Around(0, 0, 2)); got != Ongoing {
		t.Fatalf("distant region should not see the run, got %v", got)
	}
}

func TestWinIsSymmetric(t *testing.T) {
	b := New(10)
	for i := 0; i < 6; i++ {
		b.Set(2+i, 1+i, PlayerB)
	}
	b.Set(0, 9, PlayerA)
	d := NewDetector(6)
	want := d.Evaluate(b)
	if !want.Decisive() {
		t.Fatalf("setup should be decisive")
	}
	for _, tr := range Transforms() {
		if got := d.Evaluate(tr.Board(b)); got != want {
			t.Fatalf("transform %+v changed outcome from %v to %v", tr, want, got)
		}
	}
}

func TestOutcomeRelative(t *testing.T) {
	if Outcome(PlayerA).Relative(PlayerB) != Outcome(PlayerB) {
		t.Fatalf("A win seen by B should be -1")
	}
	if Draw.Relative(PlayerB) != Draw {
		t.Fatalf("Draw is not relative")
	}
	if Ongoing.Decisive() || Draw.Decisive() {
		t.Fatalf("Ongoing and Draw are not decisive")
	}
}
