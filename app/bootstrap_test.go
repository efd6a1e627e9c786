package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/self-ai-0084/selfailab-public/app/domains"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.TCPHost = "127.0.0.1"
	cfg.TCPPort = 0
	cfg.HTTPHost = "127.0.0.1"
	cfg.HTTPPort = 0
	cfg.StatsIntervalSec = 0
	return cfg
}

func TestAppEndToEnd(t *testing.T) {
	a, err := Bootstrap(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	conn, err := net.Dial("tcp", a.Collector.Addr().String())
	require.NoError(t, err)
	_, err = fmt.Fprintf(conn, "%s\n%s\n", `{"client_id":"pc-1","pc_name":"PC-1","gpu_usage_percent":12}`, `{"pc_name":"LAB-07"}`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return a.Registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/clients", a.HTTPAddr()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view domains.AggregateView
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Clients, 2)
	assert.Equal(t, "LAB-07", view.Clients[0].ClientID)
	assert.Equal(t, "pc-1", view.Clients[1].ClientID)
	assert.Equal(t, domains.StatusOnline, view.Clients[1].Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not shut down")
	}
}

func TestBootstrapFailsOnOccupiedPort(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	cfg.HTTPPort = occupied.Addr().(*net.TCPAddr).Port

	_, err = Bootstrap(cfg)
	assert.Error(t, err)
}
