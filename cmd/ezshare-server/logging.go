package main

import (
	"log/slog"
	"os"
)

// defaultLogLevel é info para o banner de início (com o secret) aparecer sem -v.
const defaultLogLevel = slog.LevelInfo

// setSlog configura o logger padrão. debug força o nível debug
// independente de -v.
func setSlog(verbosity int, jsonLogs, debug bool) {
	level := getLevel(verbosity)
	if debug {
		level = slog.LevelDebug
	}

	if jsonLogs {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		return
	}
	slog.SetLogLoggerLevel(level)
}

func getLevel(verbosity int) slog.Level {
	if verbosity <= 0 {
		return defaultLogLevel
	}
	return slog.LevelDebug
}
