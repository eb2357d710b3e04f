// Package infra implementa os contratos de domain com estruturas concretas.
//
//   - IntervalStore: último instante admitido por origem, com janitor
//   - WorkerPool: goroutines fixas consumindo uma fila sem limite
//   - NewChanPool: semáforo em channel (guarda da troca entre pares)
//   - Scheduler: disparo em taxa fixa com relógio injetável
//   - *StatsStore: memória, Redis, SQLite e o wrapper assíncrono
//   - Metrics / MetricsServer: coletores Prometheus e o endpoint /metrics
//   - NewThrottledListener: teto global de accepts por segundo
package infra
