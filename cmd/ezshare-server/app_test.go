package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func loadArgs(t *testing.T, args ...string) *app {
	t.Helper()
	a := newApp()
	require.NoError(t, a.cmd.ParseFlags(args))
	require.NoError(t, a.loadConfig())
	return a
}

func TestApp_LoadConfig_Defaults(t *testing.T) {
	a := loadArgs(t)

	want := defaultConfig()
	require.Equal(t, want, a.config)
}

func TestApp_LoadConfig_Flags(t *testing.T) {
	a := loadArgs(t,
		"--port", "4000",
		"--connectionintervallimit", "250",
		"--exchangeinterval", "5",
		"--secret", "abc",
		"--advertisedhostname", "peer.example",
		"--debug",
		"--max-workers", "3",
		"--conn-timeout", "500ms",
		"--stats-backend", "memory",
		"-vv",
	)

	require.Equal(t, 4000, a.config.Port)
	require.Equal(t, 250, a.config.ConnectionIntervalLimit)
	require.Equal(t, 5, a.config.ExchangeInterval)
	require.Equal(t, "abc", a.config.Secret)
	require.Equal(t, "peer.example", a.config.AdvertisedHostname)
	require.True(t, a.config.Debug)
	require.Equal(t, 3, a.config.MaxWorkers)
	require.Equal(t, 500*time.Millisecond, a.config.ConnTimeout)
	require.Equal(t, "memory", a.config.Stats.Backend)
	require.Equal(t, 2, a.config.Verbosity)
}

func TestApp_LoadConfig_EnvAndFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ezshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 5000\nmax-workers: 4\nstats-backend: sqlite\n"), 0o600))

	t.Setenv("EZSHARE_MAX_WORKERS", "7")

	a := loadArgs(t, "--config", path, "--stats-backend", "memory")

	require.Equal(t, 5000, a.config.Port, "file overrides default")
	require.Equal(t, 7, a.config.MaxWorkers, "env overrides file")
	require.Equal(t, "memory", a.config.Stats.Backend, "flag overrides file")
}

func TestApp_LoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ezshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))

	a := newApp()
	require.NoError(t, a.cmd.ParseFlags([]string{"--config", path}))
	require.Error(t, a.loadConfig())
}

func TestRun_UsageErrors(t *testing.T) {
	tests := map[string][]string{
		"Unknown flag":       {"--nope"},
		"Unparseable value":  {"--port", "abc"},
		"Port out of range":  {"--port", "0"},
		"Unexpected args":    {"extra"},
		"Half TLS pair":      {"--tls-cert", "c.pem"},
		"Unknown stats kind": {"--stats-backend", "mongo"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			a := newApp()
			a.cmd.SetArgs(args)
			a.cmd.SetOut(discard{})
			a.cmd.SetErr(discard{})

			require.Equal(t, 2, run(context.Background(), a))
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newApp()
	a.cmd.SetArgs([]string{"--port", "0"})
	require.Equal(t, 2, run(context.Background(), a), "port 0 is rejected before binding")

	a = newApp()
	a.cmd.SetArgs([]string{"--port", freePort(t), "--secret", "x", "--advertisedhostname", "localhost"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- run(ctx, a) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
