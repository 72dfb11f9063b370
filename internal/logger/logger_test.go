package logger

import "testing"

func TestLogOrderAndLevels(t *testing.T) {
	l := New(10)
	l.Infof("first %d", 1)
	l.Warningf("second")
	l.Errorf("third")

	entries := l.All()
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}
	// Newest first.
	if entries[0].Text != "third" || entries[0].Level != LevelError {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[2].Text != "first 1" || entries[2].Level != LevelInfo {
		t.Errorf("entries[2] = %+v", entries[2])
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestRecentLimit(t *testing.T) {
	l := New(10)
	for i := 0; i < 5; i++ {
		l.Infof("entry %d", i)
	}
	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("recent count = %d, want 2", len(recent))
	}
	if recent[0].Text != "entry 4" || recent[1].Text != "entry 3" {
		t.Errorf("recent = %+v", recent)
	}
	if got := l.Recent(100); len(got) != 5 {
		t.Errorf("Recent(100) = %d entries, want 5", len(got))
	}
}

func TestMaxSizeEviction(t *testing.T) {
	l := New(3)
	for i := 0; i < 6; i++ {
		l.Infof("entry %d", i)
	}
	entries := l.All()
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}
	if entries[0].Text != "entry 5" || entries[2].Text != "entry 3" {
		t.Errorf("entries = %+v", entries)
	}
}
