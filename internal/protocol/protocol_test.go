package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeClientPlaylistAdd(t *testing.T) {
	p, err := DecodeClient([]byte(`{"type":"PLAYLIST_ADD","data":{"url":"https://youtu.be/abc"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	add, ok := p.(PlaylistAddRequest)
	if !ok {
		t.Fatalf("expected PlaylistAddRequest, got %T", p)
	}
	if add.URL != "https://youtu.be/abc" {
		t.Fatalf("unexpected url %q", add.URL)
	}
}

func TestDecodeClientChat(t *testing.T) {
	p, err := DecodeClient([]byte(`{"type":"USER_CHAT","data":{"message":"hi","nickname":"ann","profile":"p.png"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chat := p.(ChatMessage)
	if chat.Message != "hi" || chat.Nickname != "ann" {
		t.Fatalf("unexpected chat payload %+v", chat)
	}
}

func TestDecodeClientUnknownType(t *testing.T) {
	_, err := DecodeClient([]byte(`{"type":"VIDEO_EXPLODE","data":{}}`))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDecodeClientMissingType(t *testing.T) {
	_, err := DecodeClient([]byte(`{"data":{"url":"x"}}`))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDecodeClientServerOnlyKinds(t *testing.T) {
	for _, raw := range []string{
		`{"type":"CHANNEL_VIEWER","data":{"anonymous_users":1,"login_users":0,"total_users":1}}`,
		`{"type":"USER_JOIN","data":{"user_id":"u1"}}`,
		`{"type":"USER_LEAVE","data":{"user_id":"u1"}}`,
		`{"type":"VIDEO_TIME","data":42}`,
		`{"type":"ERROR","data":{"code":"NotFound","message":"x"}}`,
	} {
		if _, err := DecodeClient([]byte(raw)); !errors.Is(err, ErrInvalidDirection) {
			t.Fatalf("expected ErrInvalidDirection for %s, got %v", raw, err)
		}
	}
}

func TestDecodeClientShapeMismatch(t *testing.T) {
	cases := []string{
		`{"type":"PLAYLIST_MOVE","data":{"playlist_no":"three","sequence":0}}`,
		`{"type":"PLAYLIST_REMOVE"}`,
		`{"type":"VIDEO_PLAY","data":{"playlist_no":1,"playing":true,"volume":11}}`,
		`{"type":"VIDEO_MOVE","data":"fast-forward"}`,
		`not json at all`,
	}
	for _, raw := range cases {
		if _, err := DecodeClient([]byte(raw)); !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode for %s, got %v", raw, err)
		}
	}
}

func TestDecodeClientSyncRequest(t *testing.T) {
	for _, raw := range []string{
		`{"type":"CHANNEL_SYNC"}`,
		`{"type":"CHANNEL_SYNC","data":null}`,
		`{"type":"CHANNEL_SYNC","data":{}}`,
	} {
		p, err := DecodeClient([]byte(raw))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", raw, err)
		}
		if _, ok := p.(SyncRequest); !ok {
			t.Fatalf("expected SyncRequest, got %T", p)
		}
	}
}

func TestEncodeVideoTimeIsBareNumber(t *testing.T) {
	raw, err := Encode(VideoTime(12.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var env struct {
		Type Type            `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if env.Type != TypeVideoTime {
		t.Fatalf("unexpected type %s", env.Type)
	}
	if string(env.Data) != "12.5" {
		t.Fatalf("expected bare number payload, got %s", env.Data)
	}
}

func TestEncodePlaylistItemEcho(t *testing.T) {
	raw, err := Encode(PlaylistItem{PlaylistNo: 1, URL: "https://youtu.be/abc", Sequence: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if env.Type != TypePlaylistAdd {
		t.Fatalf("unexpected type %s", env.Type)
	}
	var item PlaylistItem
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if item.PlaylistNo != 1 || item.Sequence != 0 {
		t.Fatalf("unexpected item %+v", item)
	}
}
