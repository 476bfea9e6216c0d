package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/internal/config"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	t.Parallel()

	handler := http.NewServeMux()
	server := NewServer(config.ServerConfig{Port: 8080}, handler, logging.NewNopLogger())

	require.NotNil(t, server)
	assert.Equal(t, ":8080", server.srv.Addr)
	assert.Equal(t, 15*time.Second, server.srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, server.srv.WriteTimeout)
	assert.Equal(t, 30*time.Second, server.shutdownTimeout)
	assert.Equal(t, http.Handler(handler), server.Handler())
}

func TestNewServerHonorsConfiguredTimeouts(t *testing.T) {
	t.Parallel()

	server := NewServer(config.ServerConfig{
		Port:            9090,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    3 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, http.NewServeMux(), nil)

	assert.Equal(t, 2*time.Second, server.srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, server.srv.WriteTimeout)
	assert.Equal(t, 5*time.Second, server.shutdownTimeout)
}

func TestServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	server := NewServer(config.ServerConfig{Port: 0}, http.NewServeMux(), logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx))
}

func TestServerStartReturnsNilAfterStop(t *testing.T) {
	t.Parallel()

	server := NewServer(config.ServerConfig{Port: 0}, http.NewServeMux(), logging.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, server.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}
}
