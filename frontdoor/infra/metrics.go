package infra

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa os coletores Prometheus do front door.
//
// Todos os métodos aceitam receiver nil, para que os componentes funcionem sem
// métricas configuradas.
type Metrics struct {
	ConnectionsAdmitted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	WorkersActive       prometheus.Gauge
	TasksQueued         prometheus.Gauge
	TasksFailed         prometheus.Counter
	ExchangesStarted    prometheus.Counter
	ExchangesSkipped    prometheus.Counter
}

// NewMetrics cria e registra os coletores em reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ConnectionsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_admitted_total",
			Help:      "Total number of connections admitted by the rate limiter",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Total number of connections closed for reconnecting too soon",
		}),
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of workers currently running a connection",
		}),
		TasksQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_queued",
			Help:      "Number of admitted connections waiting for a free worker",
		}),
		TasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of connection handlers that returned an error or panicked",
		}),
		ExchangesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_started_total",
			Help:      "Total number of peer exchanges started",
		}),
		ExchangesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_skipped_total",
			Help:      "Total number of exchange rounds skipped because the previous one was still running",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ConnectionsAdmitted, m.ConnectionsRejected,
		m.WorkersActive, m.TasksQueued, m.TasksFailed,
		m.ExchangesStarted, m.ExchangesSkipped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) ObserveAdmission(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.ConnectionsAdmitted.Inc()
		return
	}
	m.ConnectionsRejected.Inc()
}

func (m *Metrics) ObserveExchange(started bool) {
	if m == nil {
		return
	}
	if started {
		m.ExchangesStarted.Inc()
		return
	}
	m.ExchangesSkipped.Inc()
}

func (m *Metrics) setQueued(n int) {
	if m == nil {
		return
	}
	m.TasksQueued.Set(float64(n))
}

func (m *Metrics) workerBusy() {
	if m == nil {
		return
	}
	m.WorkersActive.Inc()
}

func (m *Metrics) workerIdle() {
	if m == nil {
		return
	}
	m.WorkersActive.Dec()
}

func (m *Metrics) taskFailed() {
	if m == nil {
		return
	}
	m.TasksFailed.Inc()
}

// maxConcurrentScrapes limita scrapes simultâneos; o excedente recebe 503.
const maxConcurrentScrapes = 4

// MetricsServer expõe /metrics via HTTP.
type MetricsServer struct {
	httpServer *http.Server

	mu   sync.RWMutex
	addr net.Addr
}

func NewMetricsServer(addr string, reg prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		MaxRequestsInFlight: maxConcurrentScrapes,
	}))

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
	}
}

// ListenAndServe bloqueia até o servidor parar. Retorna http.ErrServerClosed
// depois de Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	return s.httpServer.Serve(ln)
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr retorna o endereço real de escuta, ou "" antes de ListenAndServe.
func (s *MetricsServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}
