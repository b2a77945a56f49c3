// Package protocol defines the wire envelope exchanged over a channel's
// real-time connection and the codec that translates between raw bytes and
// typed payloads. The codec is pure translation: it never touches channel
// state and never partially succeeds.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type identifies a message kind on the wire.
type Type string

const (
	TypeChannelViewer  Type = "CHANNEL_VIEWER"
	TypeUserChat       Type = "USER_CHAT"
	TypeUserJoin       Type = "USER_JOIN"
	TypeUserLeave      Type = "USER_LEAVE"
	TypePlaylistAdd    Type = "PLAYLIST_ADD"
	TypePlaylistRemove Type = "PLAYLIST_REMOVE"
	TypePlaylistMove   Type = "PLAYLIST_MOVE"
	TypeVideoPlay      Type = "VIDEO_PLAY"
	TypeVideoMove      Type = "VIDEO_MOVE"
	TypeVideoTime      Type = "VIDEO_TIME"
	TypeChannelSync    Type = "CHANNEL_SYNC"
	TypeError          Type = "ERROR"
)

// AnonymousUserID marks chat messages from viewers without an account.
const AnonymousUserID = "NONE"

var (
	ErrDecode           = errors.New("malformed envelope")
	ErrInvalidDirection = errors.New("message kind not accepted from clients")
)

// Envelope is the transport-agnostic wire record. Type is mandatory; Data
// holds the kind-specific payload.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Payload is the tagged union of all message payloads. Exactly one concrete
// type exists per message kind, so dispatch is an exhaustive type switch.
type Payload interface {
	MessageType() Type
}

// ViewerCount is the CHANNEL_VIEWER payload, recomputed from the live viewer
// set after every join and leave.
type ViewerCount struct {
	AnonymousUsers int `json:"anonymous_users"`
	LoginUsers     int `json:"login_users"`
	TotalUsers     int `json:"total_users"`
}

func (ViewerCount) MessageType() Type { return TypeChannelViewer }

// ChatMessage is the USER_CHAT payload. SendTime and UserID are stamped by
// the server; client-supplied values for them are ignored.
type ChatMessage struct {
	Message  string `json:"message"`
	Nickname string `json:"nickname"`
	Profile  string `json:"profile"`
	SendTime string `json:"sendTime"`
	UserID   string `json:"user_id"`
}

func (ChatMessage) MessageType() Type { return TypeUserChat }

// UserJoin announces a viewer entering the channel.
type UserJoin struct {
	UserID string `json:"user_id"`
}

func (UserJoin) MessageType() Type { return TypeUserJoin }

// UserLeave announces a viewer leaving the channel.
type UserLeave struct {
	UserID string `json:"user_id"`
}

func (UserLeave) MessageType() Type { return TypeUserLeave }

// PlaylistItem is one entry in a channel's queue. PlaylistNo is assigned once
// and never reused; Sequence is the mutable display order.
type PlaylistItem struct {
	PlaylistNo int    `json:"playlist_no"`
	URL        string `json:"url"`
	Sequence   int    `json:"sequence"`
}

func (PlaylistItem) MessageType() Type { return TypePlaylistAdd }

// PlaylistAddRequest is the client-side PLAYLIST_ADD payload. The server
// assigns playlist_no and sequence and echoes the full PlaylistItem.
type PlaylistAddRequest struct {
	URL string `json:"url"`
}

func (PlaylistAddRequest) MessageType() Type { return TypePlaylistAdd }

// PlaylistRemove deletes an entry by its stable number.
type PlaylistRemove struct {
	PlaylistNo int `json:"playlist_no"`
}

func (PlaylistRemove) MessageType() Type { return TypePlaylistRemove }

// PlaylistMove re-inserts an entry at a target display position.
type PlaylistMove struct {
	PlaylistNo int `json:"playlist_no"`
	Sequence   int `json:"sequence"`
}

func (PlaylistMove) MessageType() Type { return TypePlaylistMove }

// VideoPlay starts or pauses playback of an item.
type VideoPlay struct {
	PlaylistNo int  `json:"playlist_no"`
	Playing    bool `json:"playing"`
}

func (VideoPlay) MessageType() Type { return TypeVideoPlay }

// VideoMove seeks within an item.
type VideoMove struct {
	PlaylistNo int     `json:"playlist_no"`
	Playtime   float64 `json:"playtime"`
}

func (VideoMove) MessageType() Type { return TypeVideoMove }

// VideoTime is the periodic position broadcast. Its wire representation is a
// bare number of elapsed seconds, not an object.
type VideoTime float64

func (VideoTime) MessageType() Type { return TypeVideoTime }

// PlaybackState mirrors the channel's authoritative playback inside a
// CHANNEL_SYNC snapshot.
type PlaybackState struct {
	PlaylistNo int     `json:"playlist_no"`
	Playing    bool    `json:"playing"`
	Playtime   float64 `json:"playtime"`
}

// ChannelSync is the resync snapshot pushed on every attach and on explicit
// request. It carries everything a client joining mid-stream needs.
type ChannelSync struct {
	Playlist []PlaylistItem `json:"playlist"`
	Playback *PlaybackState `json:"playback,omitempty"`
	Viewers  ViewerCount    `json:"viewers"`
}

func (ChannelSync) MessageType() Type { return TypeChannelSync }

// SyncRequest is the client-side CHANNEL_SYNC payload: an explicit request
// for a fresh snapshot, carrying no data.
type SyncRequest struct{}

func (SyncRequest) MessageType() Type { return TypeChannelSync }

// ErrorPayload is sent to the originating connection only when a command
// fails. It is never broadcast.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorPayload) MessageType() Type { return TypeError }

// serverOnly lists kinds the server generates; a client envelope of one of
// these is rejected before dispatch.
var serverOnly = map[Type]bool{
	TypeChannelViewer: true,
	TypeUserJoin:      true,
	TypeUserLeave:     true,
	TypeVideoTime:     true,
	TypeError:         true,
}

// ServerOnly reports whether t may only travel server to client.
func (t Type) ServerOnly() bool { return serverOnly[t] }

// Encode wraps a payload in its envelope and marshals it. It succeeds for
// every well-formed internal value.
func Encode(p Payload) ([]byte, error) {
	var data json.RawMessage
	switch v := p.(type) {
	case SyncRequest:
		// No payload fields.
	case VideoTime:
		data = json.RawMessage(strconv.FormatFloat(float64(v), 'f', -1, 64))
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.MessageType(), err)
		}
		data = raw
	}
	return json.Marshal(Envelope{Type: p.MessageType(), Data: data})
}

// DecodeClient parses a client-submitted envelope into its typed payload.
// Unknown kinds and shape mismatches fail with ErrDecode; server-generated
// kinds fail with ErrInvalidDirection. There is no partial success.
func DecodeClient(raw []byte) (Payload, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrDecode)
	}
	if env.Type.ServerOnly() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirection, env.Type)
	}

	switch env.Type {
	case TypeUserChat:
		var p ChatMessage
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePlaylistAdd:
		var p PlaylistAddRequest
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePlaylistRemove:
		var p PlaylistRemove
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePlaylistMove:
		var p PlaylistMove
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeVideoPlay:
		var p VideoPlay
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeVideoMove:
		var p VideoMove
		if err := strictUnmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeChannelSync:
		// Data absence (or null) is the whole request.
		if len(env.Data) != 0 && string(env.Data) != "null" && string(env.Data) != "{}" {
			return nil, fmt.Errorf("%w: CHANNEL_SYNC request carries no data", ErrDecode)
		}
		return SyncRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrDecode, env.Type)
	}
}

// strictUnmarshal decodes an object payload, rejecting absent data and
// unrecognized fields so a shape mismatch never half-populates a payload.
func strictUnmarshal(data json.RawMessage, into any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrDecode)
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
