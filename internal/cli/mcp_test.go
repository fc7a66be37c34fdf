package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeMCP_Errors(t *testing.T) {
	err := ServeMCP(context.Background(), MCPOptions{Transport: "websocket", Logs: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "unknown transport")

	err = ServeMCP(context.Background(), MCPOptions{Transport: TransportSSE, Store: "redis", RedisAddr: "127.0.0.1:1", Logs: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestServeMCP_SSEStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, ServeMCP(ctx, MCPOptions{Transport: TransportSSE, Port: 0, Logs: io.Discard}))
}
