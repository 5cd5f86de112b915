package sse

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSendToUserReachesAllConnections(t *testing.T) {
	m := NewManager()

	ch1, unsub1 := m.Subscribe("u1")
	ch2, unsub2 := m.Subscribe("u1")
	defer unsub1()
	defer unsub2()

	if sent := m.SendToUser("u1", "sync_progress", map[string]int{"processed": 1}); sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != "sync_progress" {
				t.Errorf("event type = %s, want sync_progress", ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSendToUserIsolatesUsers(t *testing.T) {
	m := NewManager()

	ch, unsub := m.Subscribe("u1")
	defer unsub()

	if sent := m.SendToUser("u2", "sync_progress", nil); sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for other user: %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager()

	ch, unsub := m.Subscribe("u1")
	unsub()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := m.ClientCount("u1"); n != 0 {
		t.Errorf("client count = %d, want 0", n)
	}

	// Unsubscribing twice must be safe.
	unsub()
}

func TestSlowClientDoesNotBlockSender(t *testing.T) {
	m := NewManager()

	_, unsub := m.Subscribe("u1")
	defer unsub()

	// Fill the buffer well past capacity; SendToUser must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.SendToUser("u1", "sync_progress", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendToUser blocked on a slow client")
	}
}

func TestStreamReplaysSnapshotAndEndsOnTerminalEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()

	router := gin.New()
	router.GET("/stream", func(c *gin.Context) {
		snapshot := &Event{Type: "sync_progress", Payload: map[string]string{"status": "idle"}}
		m.Stream(c, "u1", snapshot, func(ev Event) bool {
			payload, ok := ev.Payload.(map[string]string)
			return ok && payload["status"] != "syncing"
		})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(resp.Body)
		body <- string(data)
	}()

	waitForClients(t, m, "u1", 1)

	// The idle snapshot must not end the stream; only a delivered terminal
	// event does.
	m.SendToUser("u1", "sync_progress", map[string]string{"status": "syncing"})
	m.SendToUser("u1", "sync_complete", map[string]string{"status": "idle"})

	select {
	case got := <-body:
		if n := strings.Count(got, "event: sync_progress"); n != 2 {
			t.Errorf("sync_progress frames = %d, want 2 (snapshot plus live event):\n%s", n, got)
		}
		if !strings.Contains(got, "event: sync_complete") {
			t.Errorf("terminal event missing from stream:\n%s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after the terminal event")
	}

	waitForClients(t, m, "u1", 0)
}

func waitForClients(t *testing.T, m *Manager, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.ClientCount(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count for %s never reached %d", userID, want)
}
