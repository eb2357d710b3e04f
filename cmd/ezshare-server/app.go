package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ezshare-gateway/frontdoor"
	"ezshare-gateway/frontdoor/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cmdName   = "ezshare-server"
	envPrefix = "EZSHARE"
)

type app struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config config
}

func newApp() *app {
	a := app{viper: viper.New(), config: defaultConfig()}

	a.cmd = &cobra.Command{
		Use:           cmdName,
		Short:         "EZShare server front door",
		Long:          "Accepts EZShare client connections, throttles reconnects per source address and periodically exchanges with known peers.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setSlog(a.config.Verbosity, a.config.JSONLogs, a.config.Debug)
			if err := a.loadConfig(); err != nil {
				return err
			}
			if err := a.config.validate(); err != nil {
				return err
			}
			// Configuração válida: a partir daqui erros não imprimem usage.
			a.cmd.SilenceUsage = true
			setSlog(a.config.Verbosity, a.config.JSONLogs, a.config.Debug)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	a.cmd.CompletionOptions.HiddenDefaultCmd = true
	installFlags(&a)

	return &a
}

func installFlags(a *app) {
	def := defaultConfig()
	pf := a.cmd.PersistentFlags()
	pf.CountVarP(&a.config.Verbosity, "verbose", "v", "issue DEBUG logs (-v)")
	pf.BoolVar(&a.config.JSONLogs, "json-logs", false, "write logs as JSON to stdout")
	pf.String("config", "", "use a specific configuration file")

	f := a.cmd.Flags()
	f.StringVar(&a.config.AdvertisedHostname, "advertisedhostname", "", "hostname advertised to peers (default: this machine's hostname)")
	f.IntVar(&a.config.ConnectionIntervalLimit, "connectionintervallimit", def.ConnectionIntervalLimit, "minimum milliseconds between admitted connections from the same address")
	f.IntVar(&a.config.ExchangeInterval, "exchangeinterval", def.ExchangeInterval, "seconds between peer exchanges")
	f.IntVar(&a.config.Port, "port", def.Port, "port to listen on")
	f.StringVar(&a.config.Secret, "secret", "", "shared secret (default: random 32-character token)")
	f.BoolVar(&a.config.Debug, "debug", false, "log every connection")

	f.IntVar(&a.config.MaxWorkers, "max-workers", def.MaxWorkers, "number of connection workers")
	f.DurationVar(&a.config.ConnTimeout, "conn-timeout", def.ConnTimeout, "socket timeout handed to connection handlers")
	f.StringVar(&a.config.TLSCert, "tls-cert", "", "PEM certificate file; enables TLS together with --tls-key")
	f.StringVar(&a.config.TLSKey, "tls-key", "", "PEM private key file")
	f.Float64Var(&a.config.MaxAcceptRate, "max-accept-rate", 0, "global ceiling of accepted connections per second (0 = off)")
	f.DurationVar(&a.config.LimiterCleanupEvery, "limiter-cleanup-every", def.LimiterCleanupEvery, "how often stale per-address entries are evicted (0 = never)")
	f.StringVar(&a.config.MetricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (empty = off)")

	f.StringVar(&a.config.Stats.Backend, "stats-backend", def.Stats.Backend, "admission stats backend: none, memory, redis or sqlite")
	f.StringVar(&a.config.Stats.RedisAddr, "stats-redis-addr", "", "redis address for the redis stats backend")
	f.StringVar(&a.config.Stats.RedisPassword, "stats-redis-password", "", "redis password")
	f.IntVar(&a.config.Stats.RedisDB, "stats-redis-db", 0, "redis database")
	f.StringVar(&a.config.Stats.Prefix, "stats-prefix", def.Stats.Prefix, "redis key prefix")
	f.DurationVar(&a.config.Stats.TTL, "stats-ttl", def.Stats.TTL, "TTL of per-minute and per-address redis keys")
	f.StringVar(&a.config.Stats.Bucket, "stats-bucket", def.Stats.Bucket, "redis time bucket: minute or none")
	f.BoolVar(&a.config.Stats.TrackAddrs, "stats-track-addresses", false, "also count per source address")
	f.StringVar(&a.config.Stats.SQLitePath, "stats-sqlite-path", def.Stats.SQLitePath, "database file for the sqlite stats backend")

	if err := a.cmd.MarkFlagFilename("tls-cert"); err != nil {
		// Não deveria acontecer.
		panic(fmt.Sprintf("failed to mark tls-cert flag as filename: %v", err))
	}
	if err := a.cmd.MarkFlagFilename("tls-key"); err != nil {
		panic(fmt.Sprintf("failed to mark tls-key flag as filename: %v", err))
	}
}

// loadConfig junta flags, variáveis EZSHARE_* e o arquivo de configuração
// (nessa ordem de prioridade) em a.config.
func (a *app) loadConfig() error {
	if err := a.viper.BindPFlags(a.cmd.Flags()); err != nil {
		return err
	}
	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return err
	}

	if path, err := a.cmd.Flags().GetString("config"); err == nil && path != "" {
		a.viper.SetConfigFile(path)
	} else {
		a.viper.SetConfigName(cmdName)
		a.viper.AddConfigPath(".")
		a.viper.AddConfigPath("/etc/" + cmdName)
	}
	if err := a.viper.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		slog.Debug("No configuration file, using flags, env variables and defaults")
	} else {
		slog.Info("Using configuration file", "file", a.viper.ConfigFileUsed())
	}

	a.viper.SetEnvPrefix(envPrefix)
	a.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.viper.AutomaticEnv()

	if err := a.viper.Unmarshal(&a.config); err != nil {
		return fmt.Errorf("unable to decode configuration into struct: %w", err)
	}
	return nil
}

// Run executa o comando até ctx ser cancelado ou o servidor falhar.
func (a *app) Run(ctx context.Context) error {
	return a.cmd.ExecuteContext(ctx)
}

// UsageError diz se o erro foi de parsing/validação (antes de abrir a porta).
func (a *app) UsageError() bool {
	return !a.cmd.SilenceUsage
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.config.serverConfig()

	tlsCfg, err := a.config.tlsConfig()
	if err != nil {
		return err
	}

	stats, closeStats, err := newStatsStore(ctx, a.config.Stats)
	if err != nil {
		return err
	}
	defer closeStats()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := infra.NewMetrics("ezshare", reg)
	if err != nil {
		return err
	}
	if a.config.MetricsAddr != "" {
		stop := startMetricsServer(a.config.MetricsAddr, reg)
		defer stop()
	}

	srv, err := frontdoor.New(cfg, frontdoor.Options{
		Handler:             sessionHandler(),
		Exchanger:           logExchanger(),
		Stats:               stats,
		Metrics:             metrics,
		TLSConfig:           tlsCfg,
		MaxAcceptRate:       a.config.MaxAcceptRate,
		LimiterCleanupEvery: a.config.LimiterCleanupEvery,
	})
	if err != nil {
		return err
	}
	defer func() {
		srv.Close()
		ps := srv.PoolStats()
		slog.Info("Server stopped", "admitted", srv.Admitted(), "completed", ps.Completed, "failed", ps.Failed)
	}()

	return srv.Run(ctx)
}

func startMetricsServer(addr string, reg *prometheus.Registry) (stop func()) {
	ms := infra.NewMetricsServer(addr, reg)
	go func() {
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ms.Shutdown(ctx)
	}
}
