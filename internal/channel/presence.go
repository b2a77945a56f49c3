package channel

import (
	"time"

	"coview/internal/protocol"
)

// Viewer is one connected participant. ConnID is the connection identity the
// gateway assigned; DisplayID is what join/leave broadcasts carry (the stable
// user id for authenticated viewers, a generated guest id otherwise).
type Viewer struct {
	ConnID        string
	DisplayID     string
	UserID        string // empty for anonymous viewers
	Nickname      string
	Profile       string
	Authenticated bool
	JoinedAt      time.Time
}

// ChatUserID returns the user id stamped onto this viewer's chat messages.
func (v Viewer) ChatUserID() string {
	if v.Authenticated {
		return v.UserID
	}
	return protocol.AnonymousUserID
}

// Presence tracks the live viewer set of one channel, keyed by connection
// identity. Like the other per-channel state it relies on the session for
// serialization and holds no lock.
type Presence struct {
	viewers map[string]Viewer
}

// NewPresence returns an empty viewer set.
func NewPresence() *Presence {
	return &Presence{viewers: make(map[string]Viewer)}
}

// Join adds a viewer. Re-joining with the same connection identity is a no-op
// on the set; the caller still broadcasts USER_JOIN either way.
func (p *Presence) Join(v Viewer) {
	if _, ok := p.viewers[v.ConnID]; ok {
		return
	}
	p.viewers[v.ConnID] = v
}

// Leave removes a viewer by connection identity. Unknown ids are a no-op so
// duplicate disconnect signals are harmless; ok reports whether anything was
// removed.
func (p *Presence) Leave(connID string) (Viewer, bool) {
	v, ok := p.viewers[connID]
	if !ok {
		return Viewer{}, false
	}
	delete(p.viewers, connID)
	return v, true
}

// Get looks up a viewer by connection identity.
func (p *Presence) Get(connID string) (Viewer, bool) {
	v, ok := p.viewers[connID]
	return v, ok
}

// Counts recomputes the aggregate CHANNEL_VIEWER payload from the live set.
func (p *Presence) Counts() protocol.ViewerCount {
	var count protocol.ViewerCount
	for _, v := range p.viewers {
		if v.Authenticated {
			count.LoginUsers++
		} else {
			count.AnonymousUsers++
		}
	}
	count.TotalUsers = count.AnonymousUsers + count.LoginUsers
	return count
}

// Len returns the number of connected viewers.
func (p *Presence) Len() int { return len(p.viewers) }
