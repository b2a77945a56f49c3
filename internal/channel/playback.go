package channel

import (
	"fmt"
	"time"

	"coview/internal/protocol"
)

// playState is the playback machine state.
type playState int

const (
	stateStopped playState = iota
	statePaused
	statePlaying
)

// Playback owns the single authoritative "what is playing and where" for one
// channel. Client play/pause/seek submissions are commands applied in receipt
// order; they are never merged against client-local state, so clock skew
// between viewers cannot produce divergent positions.
type Playback struct {
	state      playState
	playlistNo int
	playtime   float64 // seconds accumulated up to lastUpdate
	lastUpdate time.Time
	now        func() time.Time
}

// NewPlayback returns a stopped playback machine. now is injectable for
// tests; pass nil for the wall clock.
func NewPlayback(now func() time.Time) *Playback {
	if now == nil {
		now = time.Now
	}
	return &Playback{state: stateStopped, now: now}
}

// SetActive makes playlistNo the active item, resets the position to zero and
// enters PAUSED. Existence of the item is the session's concern; Playback
// trusts its caller.
func (pb *Playback) SetActive(playlistNo int) {
	pb.state = statePaused
	pb.playlistNo = playlistNo
	pb.playtime = 0
	pb.lastUpdate = pb.now()
}

// ClearActive drops the active item and stops playback.
func (pb *Playback) ClearActive() {
	pb.state = stateStopped
	pb.playlistNo = 0
	pb.playtime = 0
}

// Play resumes the active item.
func (pb *Playback) Play() error {
	if pb.state == stateStopped {
		return fmt.Errorf("%w: play", ErrNoActiveItem)
	}
	if pb.state == statePlaying {
		return nil
	}
	pb.state = statePlaying
	pb.lastUpdate = pb.now()
	return nil
}

// Pause freezes the position at the current elapsed value.
func (pb *Playback) Pause() error {
	if pb.state == stateStopped {
		return fmt.Errorf("%w: pause", ErrNoActiveItem)
	}
	if pb.state == statePlaying {
		pb.playtime += pb.now().Sub(pb.lastUpdate).Seconds()
		pb.lastUpdate = pb.now()
	}
	pb.state = statePaused
	return nil
}

// Seek moves the position, clamping to >= 0. The playing flag is unchanged.
func (pb *Playback) Seek(playtime float64) error {
	if pb.state == stateStopped {
		return fmt.Errorf("%w: seek", ErrNoActiveItem)
	}
	if playtime < 0 {
		playtime = 0
	}
	pb.playtime = playtime
	pb.lastUpdate = pb.now()
	return nil
}

// Position returns the authoritative elapsed seconds, extrapolated from the
// last update while playing.
func (pb *Playback) Position() float64 {
	if pb.state == statePlaying {
		return pb.playtime + pb.now().Sub(pb.lastUpdate).Seconds()
	}
	return pb.playtime
}

// Active reports whether an item is active and which one.
func (pb *Playback) Active() (int, bool) {
	if pb.state == stateStopped {
		return 0, false
	}
	return pb.playlistNo, true
}

// Playing reports whether the machine is in PLAYING.
func (pb *Playback) Playing() bool { return pb.state == statePlaying }

// Snapshot renders the state for a CHANNEL_SYNC payload, or nil when stopped.
func (pb *Playback) Snapshot() *protocol.PlaybackState {
	if pb.state == stateStopped {
		return nil
	}
	return &protocol.PlaybackState{
		PlaylistNo: pb.playlistNo,
		Playing:    pb.state == statePlaying,
		Playtime:   pb.Position(),
	}
}
