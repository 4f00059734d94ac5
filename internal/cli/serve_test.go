package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/config"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// testConfig returns a config with an in-memory store, a temp artifact root
// and no simulated step delay.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.StoreMemory
	cfg.AI.Provider = config.ProviderNone
	cfg.Artifacts.Root = t.TempDir()
	cfg.Execution.MinStepDelay = 0
	cfg.Execution.MaxStepDelay = 0
	return cfg
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(url, "application/json", &buf) //nolint:noctx // test helper
	require.NoError(t, err)
	return resp
}

func getJSON[T any](t *testing.T, url string) T {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServe_RunsAgentAndShutsDown(t *testing.T) {
	svc, err := newServices(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, svc, ln, nil) }()

	health := getJSON[map[string]any](t, base+"/api/health")
	assert.Equal(t, "ok", health["status"])

	resp := postJSON(t, base+"/api/projects", map[string]any{
		"name":        "Planets",
		"description": "a quiz about planets",
		"game_kind":   "quiz",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p domain.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	_ = resp.Body.Close()

	resp = postJSON(t, base+"/api/agent/control", map[string]any{
		"projectId":   p.ID,
		"action":      "start",
		"instruction": "create a quiz about planets",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	require.Eventually(t, func() bool {
		state := getJSON[domain.TaskState](t, base+"/api/agent/state?projectId="+p.ID)
		return state.Status == constants.AgentStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		stored := getJSON[domain.Project](t, base+"/api/projects/"+p.ID)
		return stored.Status == constants.ProjectStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ForcedShutdown(t *testing.T) {
	svc, err := newServices(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	forced := make(chan struct{})
	close(forced)
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, svc, ln, forced) }()

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
