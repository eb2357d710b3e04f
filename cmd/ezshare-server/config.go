package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ezshare-gateway/frontdoor/domain"

	"github.com/google/uuid"
)

// hostname é trocado nos testes.
var hostname = os.Hostname

type statsConfig struct {
	Backend       string        `mapstructure:"stats-backend"`
	RedisAddr     string        `mapstructure:"stats-redis-addr"`
	RedisPassword string        `mapstructure:"stats-redis-password"`
	RedisDB       int           `mapstructure:"stats-redis-db"`
	Prefix        string        `mapstructure:"stats-prefix"`
	TTL           time.Duration `mapstructure:"stats-ttl"`
	Bucket        string        `mapstructure:"stats-bucket"`
	TrackAddrs    bool          `mapstructure:"stats-track-addresses"`
	SQLitePath    string        `mapstructure:"stats-sqlite-path"`
}

type config struct {
	Verbosity int  `mapstructure:"verbose"`
	JSONLogs  bool `mapstructure:"json-logs"`
	Debug     bool `mapstructure:"debug"`

	AdvertisedHostname string `mapstructure:"advertisedhostname"`
	// em milissegundos
	ConnectionIntervalLimit int `mapstructure:"connectionintervallimit"`
	// em segundos
	ExchangeInterval int    `mapstructure:"exchangeinterval"`
	Port             int    `mapstructure:"port"`
	Secret           string `mapstructure:"secret"`

	MaxWorkers          int           `mapstructure:"max-workers"`
	ConnTimeout         time.Duration `mapstructure:"conn-timeout"`
	TLSCert             string        `mapstructure:"tls-cert"`
	TLSKey              string        `mapstructure:"tls-key"`
	MaxAcceptRate       float64       `mapstructure:"max-accept-rate"`
	LimiterCleanupEvery time.Duration `mapstructure:"limiter-cleanup-every"`
	MetricsAddr         string        `mapstructure:"metrics-addr"`

	Stats statsConfig `mapstructure:",squash"`
}

func defaultConfig() config {
	return config{
		ConnectionIntervalLimit: 1000,
		ExchangeInterval:        600,
		Port:                    3780,
		MaxWorkers:              10,
		ConnTimeout:             2 * time.Second,
		LimiterCleanupEvery:     2 * time.Minute,
		Stats: statsConfig{
			Backend:    "none",
			Prefix:     "ezshare:admission",
			TTL:        24 * time.Hour,
			Bucket:     "minute",
			SQLitePath: "ezshare-stats.db",
		},
	}
}

func (c config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ConnectionIntervalLimit < 0 {
		return errors.New("connectionintervallimit must be >= 0")
	}
	if c.ExchangeInterval <= 0 {
		return errors.New("exchangeinterval must be > 0")
	}
	if c.MaxWorkers <= 0 {
		return errors.New("max-workers must be > 0")
	}
	if c.ConnTimeout < 0 {
		return errors.New("conn-timeout must be >= 0")
	}
	if c.MaxAcceptRate < 0 {
		return errors.New("max-accept-rate must be >= 0")
	}
	if c.LimiterCleanupEvery < 0 {
		return errors.New("limiter-cleanup-every must be >= 0")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}

	switch strings.ToLower(strings.TrimSpace(c.Stats.Backend)) {
	case "", "none", "memory":
	case "redis":
		if strings.TrimSpace(c.Stats.RedisAddr) == "" {
			return errors.New("stats-redis-addr is required when stats-backend=redis")
		}
	case "sqlite":
		if strings.TrimSpace(c.Stats.SQLitePath) == "" {
			return errors.New("stats-sqlite-path is required when stats-backend=sqlite")
		}
	default:
		return fmt.Errorf("unknown stats-backend %q (want none, memory, redis or sqlite)", c.Stats.Backend)
	}
	return nil
}

// serverConfig resolve os valores automáticos (hostname e secret) e monta a
// configuração imutável do processo.
func (c config) serverConfig() domain.ServerConfig {
	host := strings.TrimSpace(c.AdvertisedHostname)
	if host == "" {
		h, err := hostname()
		if err != nil {
			slog.Warn("Failed to detect hostname, advertising an empty one", "err", err)
		}
		host = h
	}

	secret := c.Secret
	if secret == "" {
		secret = newSecret()
	}

	return domain.ServerConfig{
		AdvertisedHostname:      host,
		Port:                    c.Port,
		Secret:                  secret,
		ConnectionIntervalLimit: time.Duration(c.ConnectionIntervalLimit) * time.Millisecond,
		ExchangeInterval:        time.Duration(c.ExchangeInterval) * time.Second,
		MaxWorkers:              c.MaxWorkers,
		Debug:                   c.Debug,
		ConnTimeout:             c.ConnTimeout,
	}
}

// newSecret gera um token aleatório de 32 caracteres hexadecimais.
func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// tlsConfig retorna nil quando TLS não foi configurado.
func (c config) tlsConfig() (*tls.Config, error) {
	if c.TLSCert == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.TLSCert, c.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
