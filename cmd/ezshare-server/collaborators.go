package main

import (
	"context"
	"log/slog"
	"time"

	"ezshare-gateway/frontdoor/domain"
)

// sessionHandler é o ponto onde o protocolo de comandos entra. Por enquanto só
// aplica o timeout de socket e encerra a sessão.
func sessionHandler() domain.ConnectionHandler {
	return domain.ConnectionHandlerFunc(func(ctx context.Context, task domain.ConnTask) error {
		defer task.Conn.Close()

		if task.Config.ConnTimeout > 0 {
			if err := task.Conn.SetDeadline(time.Now().Add(task.Config.ConnTimeout)); err != nil {
				return err
			}
		}
		slog.Debug("Session closed", "index", task.Index, "addr", task.Address,
			"duration", time.Since(task.AcceptedAt))
		return ctx.Err()
	})
}

// logExchanger registra cada rodada da troca entre pares.
func logExchanger() domain.Exchanger {
	return domain.ExchangerFunc(func(ctx context.Context, cfg domain.ServerConfig) error {
		slog.Info("Peer exchange round", "advertised", cfg.AdvertisedAddr())
		return ctx.Err()
	})
}
