package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/event"
)

func TestOpen_UnknownTransport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Transport = "carrier-pigeon"

	client, err := Open(context.Background(), cfg, event.NewBus(nil), nil)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "unknown backend transport")
}

func TestOpen_ProcessNotFound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Command = []string{filepath.Join(t.TempDir(), "no-such-detector")}

	client, err := Open(context.Background(), cfg, event.NewBus(nil), nil)
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestOpen_SocketMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Transport = "socket"
	cfg.Backend.Socket = filepath.Join(t.TempDir(), "missing.sock")

	client, err := Open(context.Background(), cfg, event.NewBus(nil), nil)
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestOpen_Socket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			var req struct {
				ID      string `json:"id"`
				Command string `json:"command"`
			}
			if json.Unmarshal(sc.Bytes(), &req) != nil {
				continue
			}
			resp, _ := json.Marshal(map[string]any{"id": req.ID, "result": "Detection started"})
			_, _ = conn.Write(append(resp, '\n'))
		}
	}()

	cfg := config.DefaultConfig()
	cfg.Backend.Transport = "socket"
	cfg.Backend.Socket = path

	client, err := Open(context.Background(), cfg, event.NewBus(nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	msg, err := client.StartDetection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Detection started", msg)
}

func TestOwnsDetector(t *testing.T) {
	tests := []struct {
		transport string
		want      bool
	}{
		{"process", true},
		{"socket", true},
		{"dbus", false},
	}

	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Backend.Transport = tt.transport
			assert.Equal(t, tt.want, OwnsDetector(cfg))
		})
	}
}
