package repo

import (
	"testing"
	"time"
)

func TestDecodeProgress(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fields := map[string]string{
		"status":     "running",
		"target":     "500",
		"submitted":  "750",
		"completed":  "12",
		"discarded":  "3",
		"failed":     "1",
		"examples":   "960",
		"started_at": started.Format(time.RFC3339Nano),
	}
	p, err := decodeProgress("abc", fields)
	if err != nil {
		t.Fatalf("decodeProgress: %v", err)
	}
	if p.RunID != "abc" || p.Target != 500 || p.Submitted != 750 || p.Completed != 12 ||
		p.Discarded != 3 || p.Failed != 1 || p.Examples != 960 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if !p.StartedAt.Equal(started) || !p.UpdatedAt.IsZero() {
		t.Fatalf("timestamps %v %v", p.StartedAt, p.UpdatedAt)
	}

	fields["completed"] = "many"
	if _, err := decodeProgress("abc", fields); err == nil {
		t.Fatalf("non-numeric counter should fail")
	}
}

func TestRedisKeys(t *testing.T) {
	if progressKey("r1") != "run:r1:progress" || positionsKey("r1") != "run:r1:positions" {
		t.Fatalf("unexpected redis keys")
	}
}
