package main

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*config)
		wantErr bool
	}{
		"Defaults are valid":                 {mutate: func(*config) {}},
		"Zero connection interval is valid":  {mutate: func(c *config) { c.ConnectionIntervalLimit = 0 }},
		"Memory backend":                     {mutate: func(c *config) { c.Stats.Backend = "Memory" }},
		"Redis backend with address":         {mutate: func(c *config) { c.Stats.Backend = "redis"; c.Stats.RedisAddr = "localhost:6379" }},
		"TLS pair":                           {mutate: func(c *config) { c.TLSCert, c.TLSKey = "c.pem", "k.pem" }},
		"Error when port is zero":            {mutate: func(c *config) { c.Port = 0 }, wantErr: true},
		"Error when port is too big":         {mutate: func(c *config) { c.Port = 70000 }, wantErr: true},
		"Error when interval is negative":    {mutate: func(c *config) { c.ConnectionIntervalLimit = -1 }, wantErr: true},
		"Error when exchange interval is 0":  {mutate: func(c *config) { c.ExchangeInterval = 0 }, wantErr: true},
		"Error when workers is 0":            {mutate: func(c *config) { c.MaxWorkers = 0 }, wantErr: true},
		"Error when conn timeout < 0":        {mutate: func(c *config) { c.ConnTimeout = -time.Second }, wantErr: true},
		"Error when accept rate < 0":         {mutate: func(c *config) { c.MaxAcceptRate = -1 }, wantErr: true},
		"Error when cleanup < 0":             {mutate: func(c *config) { c.LimiterCleanupEvery = -time.Second }, wantErr: true},
		"Error when only the TLS cert":       {mutate: func(c *config) { c.TLSCert = "c.pem" }, wantErr: true},
		"Error when redis has no address":    {mutate: func(c *config) { c.Stats.Backend = "redis" }, wantErr: true},
		"Error when sqlite has no path":      {mutate: func(c *config) { c.Stats.Backend = "sqlite"; c.Stats.SQLitePath = " " }, wantErr: true},
		"Error when backend is unknown":      {mutate: func(c *config) { c.Stats.Backend = "mongo" }, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := defaultConfig()
			tc.mutate(&c)

			err := c.validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_ServerConfig_Units(t *testing.T) {
	c := defaultConfig()
	c.AdvertisedHostname = "peer.example"
	c.Secret = "fixed"

	sc := c.serverConfig()
	require.Equal(t, "peer.example", sc.AdvertisedHostname)
	require.Equal(t, "fixed", sc.Secret)
	require.Equal(t, time.Second, sc.ConnectionIntervalLimit)
	require.Equal(t, 10*time.Minute, sc.ExchangeInterval)
	require.Equal(t, 3780, sc.Port)
	require.Equal(t, 10, sc.MaxWorkers)
	require.Equal(t, 2*time.Second, sc.ConnTimeout)
	require.Equal(t, "peer.example:3780", sc.AdvertisedAddr())
	require.Equal(t, ":3780", sc.ListenAddr())
}

func TestConfig_ServerConfig_Defaults(t *testing.T) {
	orig := hostname
	t.Cleanup(func() { hostname = orig })

	hostname = func() (string, error) { return "detected-host", nil }
	sc := defaultConfig().serverConfig()
	require.Equal(t, "detected-host", sc.AdvertisedHostname)
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), sc.Secret)
	require.NotEqual(t, sc.Secret, defaultConfig().serverConfig().Secret, "each start should get a new secret")
}

func TestConfig_ServerConfig_HostnameFailureIsNotFatal(t *testing.T) {
	orig := hostname
	t.Cleanup(func() { hostname = orig })

	hostname = func() (string, error) { return "", errors.New("no hostname") }
	sc := defaultConfig().serverConfig()
	require.Empty(t, sc.AdvertisedHostname)
	require.NotEmpty(t, sc.Secret)
}

func TestConfig_TLSConfig(t *testing.T) {
	c := defaultConfig()
	got, err := c.tlsConfig()
	require.NoError(t, err)
	require.Nil(t, got, "no TLS when no files are set")

	c.TLSCert = filepath.Join(t.TempDir(), "missing-cert.pem")
	c.TLSKey = filepath.Join(t.TempDir(), "missing-key.pem")
	_, err = c.tlsConfig()
	require.Error(t, err)
}
