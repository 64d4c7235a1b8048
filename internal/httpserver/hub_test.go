package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dummy-library/inventory-core/internal/jobs"
	"github.com/dummy-library/inventory-core/internal/store"
)

func TestJobHubBroadcastsToConnectedClients(t *testing.T) {
	hub := newJobHub(zerolog.Nop())

	server := httptest.NewServer(http.HandlerFunc(hub.serveWS))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the server goroutine time to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(jobs.Transition{
		JobID:    "job-1",
		Type:     store.JobRestock,
		Status:   store.JobCompleted,
		Attempts: 1,
		At:       time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if len(msg) == 0 {
		t.Fatal("expected a non-empty event payload")
	}
}
