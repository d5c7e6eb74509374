package mediasession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Musio/core/player"
	"Musio/model"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func setup(t *testing.T) (*Hub, *player.Session, *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	session := player.NewSession("s1", player.WithPublisher(hub))
	session.LoadQueue([]model.Track{
		{ID: "t1", Title: "One", Artist: "A"},
		{ID: "t2", Title: "Two", Artist: "B"},
	}, 0)
	// Let the hub drain the load update before anyone connects.
	for deadline := time.Now().Add(2 * time.Second); len(hub.broadcast) > 0; {
		if time.Now().After(deadline) {
			t.Fatal("hub did not drain broadcast queue")
		}
		time.Sleep(time.Millisecond)
	}

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(context.Background(), conn, session)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return hub, session, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg WSMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func TestAttachSendsCurrentTrack(t *testing.T) {
	_, _, conn := setup(t)

	msg := readMessage(t, conn)
	if msg.Type != MsgTypeNowPlaying || msg.NowPlaying == nil {
		t.Fatalf("first message = %+v, want now_playing", msg)
	}
	if msg.NowPlaying.TrackID != "t1" || msg.NowPlaying.Title != "One" {
		t.Errorf("NowPlaying = %+v, want t1", msg.NowPlaying)
	}
}

func TestActionAdvancesSession(t *testing.T) {
	_, session, conn := setup(t)
	readMessage(t, conn)

	send(t, conn, WSMessage{Type: MsgTypeAction, Action: player.ActionNext})

	msg := readMessage(t, conn)
	if msg.Type != MsgTypeNowPlaying || msg.NowPlaying.TrackID != "t2" {
		t.Fatalf("message = %+v, want now_playing for t2", msg)
	}
	if got := session.State().Cursor; got != 1 {
		t.Errorf("Cursor = %d, want 1", got)
	}
}

func TestPingAndUnknownAction(t *testing.T) {
	_, _, conn := setup(t)
	readMessage(t, conn)

	send(t, conn, WSMessage{Type: MsgTypePing})
	if msg := readMessage(t, conn); msg.Type != MsgTypePong {
		t.Errorf("reply = %q, want pong", msg.Type)
	}

	send(t, conn, WSMessage{Type: MsgTypeAction, Action: "seekto"})
	msg := readMessage(t, conn)
	if msg.Type != MsgTypeError || !strings.Contains(msg.Error, "seekto") {
		t.Errorf("reply = %+v, want error naming the action", msg)
	}
}

func TestPublishOnlyReachesOwnSession(t *testing.T) {
	hub, _, conn := setup(t)
	readMessage(t, conn)

	hub.Publish(player.NowPlaying{SessionID: "other", TrackID: "x"})
	hub.Publish(player.NowPlaying{SessionID: "s1", TrackID: "t9"})

	msg := readMessage(t, conn)
	if msg.NowPlaying == nil || msg.NowPlaying.TrackID != "t9" {
		t.Errorf("message = %+v, want t9", msg)
	}
	if n := hub.ClientCount("s1"); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // not running
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(player.NowPlaying{SessionID: "s"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}
