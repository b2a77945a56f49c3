package channel

import (
	"fmt"

	"coview/internal/protocol"
)

// Playlist owns the ordered queue of one channel. It has no locking: the
// session goroutine is its single caller.
type Playlist struct {
	items  []protocol.PlaylistItem // kept sorted by Sequence ascending
	nextNo int
}

// NewPlaylist returns an empty playlist. playlist_no assignment starts at 1
// and is never reused, even after removals.
func NewPlaylist() *Playlist {
	return &Playlist{nextNo: 1}
}

// Add appends a new item with the next unused playlist_no and a sequence one
// past the current maximum (0 when empty), and returns the created item.
func (p *Playlist) Add(url string) protocol.PlaylistItem {
	seq := 0
	if n := len(p.items); n > 0 {
		seq = p.items[n-1].Sequence + 1
	}
	item := protocol.PlaylistItem{PlaylistNo: p.nextNo, URL: url, Sequence: seq}
	p.nextNo++
	p.items = append(p.items, item)
	return item
}

// Remove deletes the entry with the given playlist_no. Remaining sequences
// are left untouched; gaps are permitted and renumbering belongs to Move.
func (p *Playlist) Remove(playlistNo int) error {
	idx := p.indexOf(playlistNo)
	if idx < 0 {
		return fmt.Errorf("%w: playlist_no %d", ErrNotFound, playlistNo)
	}
	p.items = append(p.items[:idx], p.items[idx+1:]...)
	return nil
}

// Move re-inserts an item at targetSequence. Every other item whose sequence
// is >= targetSequence shifts by +1, preserving uniqueness, total order and
// the relative order of unmoved items. Negative targets clamp to 0; the
// returned value is the sequence actually applied.
func (p *Playlist) Move(playlistNo, targetSequence int) (int, error) {
	idx := p.indexOf(playlistNo)
	if idx < 0 {
		return 0, fmt.Errorf("%w: playlist_no %d", ErrNotFound, playlistNo)
	}
	if targetSequence < 0 {
		targetSequence = 0
	}

	moved := p.items[idx]
	moved.Sequence = targetSequence
	rest := append(append([]protocol.PlaylistItem{}, p.items[:idx]...), p.items[idx+1:]...)
	for i := range rest {
		if rest[i].Sequence >= targetSequence {
			rest[i].Sequence++
		}
	}

	// Re-insert in sequence order.
	pos := len(rest)
	for i, it := range rest {
		if it.Sequence > targetSequence {
			pos = i
			break
		}
	}
	p.items = append(rest[:pos:pos], append([]protocol.PlaylistItem{moved}, rest[pos:]...)...)
	return targetSequence, nil
}

// Items returns a snapshot ordered by sequence ascending.
func (p *Playlist) Items() []protocol.PlaylistItem {
	out := make([]protocol.PlaylistItem, len(p.items))
	copy(out, p.items)
	return out
}

// Contains reports whether playlistNo is present.
func (p *Playlist) Contains(playlistNo int) bool {
	return p.indexOf(playlistNo) >= 0
}

// First returns the lowest-sequence item, if any.
func (p *Playlist) First() (protocol.PlaylistItem, bool) {
	if len(p.items) == 0 {
		return protocol.PlaylistItem{}, false
	}
	return p.items[0], true
}

// Len returns the number of items.
func (p *Playlist) Len() int { return len(p.items) }

func (p *Playlist) indexOf(playlistNo int) int {
	for i, it := range p.items {
		if it.PlaylistNo == playlistNo {
			return i
		}
	}
	return -1
}
