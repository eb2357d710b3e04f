// Command ezshare-server é o front door do servidor EZShare: aceita conexões TCP,
// aplica o intervalo mínimo por origem, despacha as sessões para um pool de
// workers e dispara a troca periódica com os pares.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, newApp())
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, a *app) int {
	if err := a.Run(ctx); err != nil {
		slog.Error(err.Error())

		if a.UsageError() {
			return 2
		}
		return 1
	}
	return 0
}
