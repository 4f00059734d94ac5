package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/domain"
)

type wireEvent struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

func startHub(t *testing.T, provider StateProvider) (*Bus, *Hub, string) {
	t.Helper()

	bus := NewBus(zerolog.Nop())
	hub := NewHub(bus, zerolog.Nop(), nil)
	hub.SetStateProvider(provider)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return bus, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev wireEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func waitForSubscribers(t *testing.T, bus *Bus, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(topic) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ForwardsTaskEvents(t *testing.T) {
	bus, hub, url := startHub(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?taskId=task-1", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	waitForSubscribers(t, bus, "task-1", 1)
	assert.Equal(t, 1, hub.ClientCount())

	bus.Publish("task-1", domain.EventPreviewUpdated, domain.PreviewUpdatedPayload{URL: "/task-1/game-1/index.html"})
	bus.Publish("task-2", domain.EventPreviewUpdated, domain.PreviewUpdatedPayload{URL: "/other"})

	ev := readEvent(t, conn)
	assert.Equal(t, "task-1", ev.Topic)
	assert.Equal(t, string(domain.EventPreviewUpdated), ev.Type)
	assert.JSONEq(t, `{"url":"/task-1/game-1/index.html"}`, string(ev.Data))
}

func TestHub_SendsInitialState(t *testing.T) {
	provider := func(taskID string) any {
		return map[string]string{"task_id": taskID, "status": "idle"}
	}
	_, _, url := startHub(t, provider)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?taskId=task-9", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	ev := readEvent(t, conn)
	assert.Equal(t, string(domain.EventState), ev.Type)
	assert.JSONEq(t, `{"task_id":"task-9","status":"idle"}`, string(ev.Data))
}

func TestHub_InitialStateIsNotFollowedByOlderState(t *testing.T) {
	var bus *Bus
	provider := func(taskID string) any {
		// A state published while the snapshot is read is older than the snapshot.
		bus.Publish(taskID, domain.EventState, map[string]string{"status": "thinking"})
		return map[string]string{"status": "coding"}
	}
	bus, _, url := startHub(t, provider)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?taskId=task-5", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	ev := readEvent(t, conn)
	assert.Equal(t, string(domain.EventState), ev.Type)
	assert.JSONEq(t, `{"status":"coding"}`, string(ev.Data))

	waitForSubscribers(t, bus, "task-5", 1)
	bus.Publish("task-5", domain.EventLog, "after")
	ev = readEvent(t, conn)
	assert.Equal(t, string(domain.EventLog), ev.Type)
	assert.JSONEq(t, `"after"`, string(ev.Data))
}

func TestHub_SubscribeCommand(t *testing.T) {
	bus, _, url := startHub(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	require.NoError(t, conn.WriteJSON(clientCommand{Type: "subscribe", Topics: []string{"task-3"}}))
	waitForSubscribers(t, bus, "task-3", 1)

	bus.Publish("task-3", domain.EventLog, "hello")
	ev := readEvent(t, conn)
	assert.Equal(t, "task-3", ev.Topic)

	require.NoError(t, conn.WriteJSON(clientCommand{Type: "unsubscribe", Topics: []string{"task-3"}}))
	waitForSubscribers(t, bus, "task-3", 0)
}

func TestHub_DisconnectReleasesSubscriptions(t *testing.T) {
	bus, hub, url := startHub(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?taskId=task-4", nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	waitForSubscribers(t, bus, "task-4", 1)

	require.NoError(t, conn.Close())

	waitForSubscribers(t, bus, "task-4", 0)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	hub := NewHub(bus, zerolog.Nop(), []string{"http://allowed.example"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	}
}
