package channel

import (
	"errors"
	"testing"
)

func TestPlaylistAddAssignsNumbersAndSequences(t *testing.T) {
	p := NewPlaylist()

	a := p.Add("a")
	if a.PlaylistNo != 1 || a.Sequence != 0 {
		t.Fatalf("first add: got no=%d seq=%d, want no=1 seq=0", a.PlaylistNo, a.Sequence)
	}
	b := p.Add("b")
	if b.PlaylistNo != 2 || b.Sequence != 1 {
		t.Fatalf("second add: got no=%d seq=%d, want no=2 seq=1", b.PlaylistNo, b.Sequence)
	}
}

func TestPlaylistNumbersNeverReused(t *testing.T) {
	p := NewPlaylist()
	seen := map[int]bool{}

	for i := 0; i < 5; i++ {
		item := p.Add("u")
		if seen[item.PlaylistNo] {
			t.Fatalf("playlist_no %d reused", item.PlaylistNo)
		}
		seen[item.PlaylistNo] = true
	}
	if err := p.Remove(3); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := p.Remove(5); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for i := 0; i < 5; i++ {
		item := p.Add("u")
		if seen[item.PlaylistNo] {
			t.Fatalf("playlist_no %d reused after removals", item.PlaylistNo)
		}
		seen[item.PlaylistNo] = true
	}
}

func TestPlaylistRemoveLeavesGaps(t *testing.T) {
	p := NewPlaylist()
	p.Add("a")
	p.Add("b")
	p.Add("c")

	if err := p.Remove(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Sequence != 0 || items[1].Sequence != 2 {
		t.Fatalf("sequences renumbered on remove: %+v", items)
	}
}

func TestPlaylistRemoveUnknown(t *testing.T) {
	p := NewPlaylist()
	p.Add("a")
	if err := p.Remove(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylistMoveToFront(t *testing.T) {
	p := NewPlaylist()
	p.Add("a") // no=1 seq=0
	p.Add("b") // no=2 seq=1
	p.Add("c") // no=3 seq=2

	seq, err := p.Move(3, 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if seq != 0 {
		t.Fatalf("applied sequence = %d, want 0", seq)
	}
	items := p.Items()
	wantOrder := []int{3, 1, 2}
	for i, want := range wantOrder {
		if items[i].PlaylistNo != want {
			t.Fatalf("position %d: got no=%d, want %d (items %+v)", i, items[i].PlaylistNo, want, items)
		}
	}
	if items[0].Sequence != 0 {
		t.Fatalf("moved item sequence = %d, want 0", items[0].Sequence)
	}
	assertUniqueSequences(t, p)
}

func TestPlaylistMoveNegativeTargetClamps(t *testing.T) {
	p := NewPlaylist()
	p.Add("a")
	p.Add("b")

	seq, err := p.Move(2, -5)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if seq != 0 {
		t.Fatalf("applied sequence = %d, want 0 after clamping", seq)
	}
	if order := playlistOrder(p); order[0] != 2 {
		t.Fatalf("expected item 2 at the front, got %v", order)
	}
	assertUniqueSequences(t, p)
}

func TestPlaylistMoveUnknown(t *testing.T) {
	p := NewPlaylist()
	if _, err := p.Move(1, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylistMoveRepeatedKeepsOrder(t *testing.T) {
	p := NewPlaylist()
	p.Add("a")
	p.Add("b")
	p.Add("c")

	if _, err := p.Move(3, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	first := playlistOrder(p)
	if _, err := p.Move(3, 0); err != nil {
		t.Fatalf("second move: %v", err)
	}
	second := playlistOrder(p)
	if len(first) != len(second) {
		t.Fatalf("length changed across repeated move")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated move changed order: %v vs %v", first, second)
		}
	}
}

func TestPlaylistSequencesStayUnique(t *testing.T) {
	p := NewPlaylist()
	for i := 0; i < 8; i++ {
		p.Add("u")
	}
	ops := []func() error{
		func() error { _, err := p.Move(5, 0); return err },
		func() error { return p.Remove(2) },
		func() error { _, err := p.Move(8, 3); return err },
		func() error { p.Add("v"); return nil },
		func() error { _, err := p.Move(1, 100); return err },
		func() error { return p.Remove(7) },
		func() error { p.Add("w"); return nil },
		func() error { _, err := p.Move(3, 2); return err },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		assertUniqueSequences(t, p)
	}
}

func assertUniqueSequences(t *testing.T, p *Playlist) {
	t.Helper()
	seen := map[int]bool{}
	prev := -1
	for _, it := range p.Items() {
		if seen[it.Sequence] {
			t.Fatalf("duplicate sequence %d", it.Sequence)
		}
		if it.Sequence <= prev {
			t.Fatalf("items not in ascending sequence order: %+v", p.Items())
		}
		seen[it.Sequence] = true
		prev = it.Sequence
	}
}

func playlistOrder(p *Playlist) []int {
	var order []int
	for _, it := range p.Items() {
		order = append(order, it.PlaylistNo)
	}
	return order
}
