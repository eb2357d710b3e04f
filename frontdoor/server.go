package frontdoor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"ezshare-gateway/frontdoor/application"
	"ezshare-gateway/frontdoor/domain"
	"ezshare-gateway/frontdoor/infra"

	"github.com/benbjohnson/clock"
	"github.com/ubuntu/decorate"
)

// ErrNoHandler é retornado por New quando não há ConnectionHandler.
var ErrNoHandler = errors.New("no connection handler configured")

type Options struct {
	Handler   domain.ConnectionHandler
	Exchanger domain.Exchanger

	// Stats recebe um evento por decisão. Best-effort: erro não para o loop.
	Stats   domain.StatsStore
	Metrics *infra.Metrics
	Clock   clock.Clock

	TLSConfig *tls.Config
	// MaxAcceptRate é um teto global de accepts por segundo (0 = sem teto).
	MaxAcceptRate float64
	// LimiterCleanupEvery é o período do janitor do limiter (0 = nunca limpa).
	LimiterCleanupEvery time.Duration
}

// Server é o contexto do processo: construído uma vez e passado explicitamente,
// no lugar de estado global.
type Server struct {
	cfg  domain.ServerConfig
	opts Options

	limiter   *infra.IntervalStore
	admission *application.AdmissionService
	pool      *infra.WorkerPool
	exchange  *application.ExchangeService
	scheduler infra.Scheduler
}

// New monta o servidor e inicia os workers. O listener só é aberto em Run.
func New(cfg domain.ServerConfig, opts Options) (*Server, error) {
	if opts.Handler == nil {
		return nil, ErrNoHandler
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	limiter := infra.NewIntervalStore(cfg.ConnectionIntervalLimit,
		infra.WithCleanupEvery(opts.LimiterCleanupEvery),
		infra.WithStoreClock(opts.Clock),
	)

	return &Server{
		cfg:     cfg,
		opts:    opts,
		limiter: limiter,
		admission: &application.AdmissionService{
			Limiter:  limiter,
			Interval: cfg.ConnectionIntervalLimit,
		},
		pool: infra.NewWorkerPool("connections", cfg.MaxWorkers, opts.Handler,
			infra.WithPoolMetrics(opts.Metrics)),
		exchange: &application.ExchangeService{
			Exchanger: opts.Exchanger,
			Guard:     infra.NewChanPool(1),
			Config:    cfg,
		},
		scheduler: infra.Scheduler{Clock: opts.Clock, Interval: cfg.ExchangeInterval},
	}, nil
}

// Run abre a porta configurada e atende até ctx ser cancelado.
// Falha de bind é retornada sem iniciar nada.
func (s *Server) Run(ctx context.Context) (err error) {
	defer decorate.OnError(&err, "could not serve on port %d", s.cfg.Port)

	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return err
	}
	if s.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, s.opts.TLSConfig)
	}
	if s.opts.MaxAcceptRate > 0 {
		ln = infra.NewThrottledListener(ln, s.opts.MaxAcceptRate)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.limiter.StartJanitor(ctx)
	if s.opts.Exchanger != nil {
		go s.scheduler.Run(ctx, s.fireExchange)
	}

	slog.Info("Starting EZShare server",
		"secret", s.cfg.Secret,
		"hostname", s.cfg.AdvertisedHostname,
		"port", s.cfg.Port,
		"addr", ln.Addr().String(),
		"tls", s.opts.TLSConfig != nil,
		"workers", s.cfg.MaxWorkers,
		"connection_interval", s.cfg.ConnectionIntervalLimit,
		"exchange_interval", s.cfg.ExchangeInterval,
	)

	return s.Serve(ctx, ln)
}

func (s *Server) fireExchange(ctx context.Context) {
	started := s.exchange.Fire(ctx)
	s.opts.Metrics.ObserveExchange(started)
	if !started {
		slog.Warn("Skipping peer exchange, previous round still running")
	}
}

// Serve roda o loop de accept em ln. É o único escritor do limiter e do contador.
// Cancelar ctx fecha ln e faz Serve retornar nil; qualquer outro erro de Accept
// é fatal e é retornado.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.admit(ctx, conn)
	}
}

func (s *Server) admit(ctx context.Context, conn net.Conn) {
	now := s.opts.Clock.Now()
	addr := SourceAddress(conn.RemoteAddr())

	dec := s.admission.Decide(addr, now)
	s.record(ctx, domain.StatsEvent{Address: addr, Allowed: dec.Allowed, Index: dec.Index, At: now})
	s.opts.Metrics.ObserveAdmission(dec.Allowed)

	if !dec.Allowed {
		slog.Warn("Connection attempt too soon", "addr", addr, "at", now, "retry_after", dec.RetryAfter)
		_ = conn.Close()
		return
	}

	slog.Debug("Client connected", "index", dec.Index, "addr", addr)
	err := s.pool.Submit(domain.ConnTask{
		Config:     s.cfg,
		Conn:       conn,
		Address:    addr,
		Index:      dec.Index,
		AcceptedAt: now,
	})
	if err != nil {
		slog.Debug("Dropping admitted connection", "index", dec.Index, "addr", addr, "err", err)
		_ = conn.Close()
	}
}

func (s *Server) record(ctx context.Context, ev domain.StatsEvent) {
	if s.opts.Stats == nil {
		return
	}
	if err := s.opts.Stats.Record(ctx, ev); err != nil {
		slog.Debug("Failed to record admission stats", "addr", ev.Address, "err", err)
	}
}

// Admitted retorna quantas conexões foram admitidas desde o início.
func (s *Server) Admitted() uint64 {
	return s.admission.Admitted()
}

// PoolStats retorna as estatísticas do pool de conexões.
func (s *Server) PoolStats() infra.PoolStats {
	return s.pool.Stats()
}

// Close para o pool (sem drenagem) e espera trocas em andamento.
// Chamado depois que Run/Serve retornou.
func (s *Server) Close() {
	s.pool.Close()
	s.exchange.Wait()
}
