package tasks

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestSplitPairName(t *testing.T) {
	cases := []struct {
		path     string
		wantBase string
		wantRole string
		wantOK   bool
	}{
		{"/drop/sunset.source.png", filepath.Join("/drop", "sunset"), "source", true},
		{"/drop/sunset.target.jpg", filepath.Join("/drop", "sunset"), "target", true},
		{"/drop/a.b.source.png", filepath.Join("/drop", "a.b"), "source", true},
		{"/drop/plain.png", "", "", false},
		{"/drop/.source.png", "", "", false},
		{"/drop/sunset.png", "", "", false},
	}
	for _, tc := range cases {
		base, role, ok := splitPairName(tc.path)
		if ok != tc.wantOK || base != tc.wantBase || role != tc.wantRole {
			t.Fatalf("splitPairName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.path, base, role, ok, tc.wantBase, tc.wantRole, tc.wantOK)
		}
	}
}

func newTestWatcher() *Watcher {
	return &Watcher{
		logger:  slog.Default(),
		Events:  make(chan PairEvent, 4),
		done:    make(chan struct{}),
		pending: make(map[string]*PairEvent),
	}
}

func TestHandleFileEmitsOnCompletePair(t *testing.T) {
	w := newTestWatcher()

	w.handleFile("/drop/sunset.source.png")
	select {
	case ev := <-w.Events:
		t.Fatalf("half a pair should not emit, got %+v", ev)
	default:
	}

	w.handleFile("/drop/sunset.target.png")
	select {
	case ev := <-w.Events:
		if ev.SourcePath != "/drop/sunset.source.png" || ev.TargetPath != "/drop/sunset.target.png" {
			t.Fatalf("unexpected pair event: %+v", ev)
		}
	default:
		t.Fatalf("complete pair did not emit an event")
	}

	// The pair is consumed; the same base starts fresh.
	if len(w.pending) != 0 {
		t.Fatalf("pending map not cleared: %v", w.pending)
	}
}

func TestHandleFileIgnoresNonImages(t *testing.T) {
	w := newTestWatcher()
	w.handleFile("/drop/sunset.source.txt")
	w.handleFile("/drop/notes.target.json")
	if len(w.pending) != 0 {
		t.Fatalf("non-image files should be ignored, pending: %v", w.pending)
	}
}

func TestHandleFileKeysPairsByDirectory(t *testing.T) {
	w := newTestWatcher()
	w.handleFile("/a/pair.source.png")
	w.handleFile("/b/pair.target.png")

	select {
	case ev := <-w.Events:
		t.Fatalf("pairs in different directories must not match, got %+v", ev)
	default:
	}
	if len(w.pending) != 2 {
		t.Fatalf("expected two separate pending pairs, got %d", len(w.pending))
	}
}

func TestHandleFileOrderIndependent(t *testing.T) {
	w := newTestWatcher()
	w.handleFile("/drop/x.target.png")
	w.handleFile("/drop/x.source.png")

	select {
	case ev := <-w.Events:
		if ev.SourcePath == "" || ev.TargetPath == "" {
			t.Fatalf("incomplete event: %+v", ev)
		}
	default:
		t.Fatalf("target-first pair did not emit")
	}
}
