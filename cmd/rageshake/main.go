package main

import (
	"context"
	"os"
	"time"

	"github.com/harun/rageshake/internal/cli"
	"github.com/harun/rageshake/internal/tracing"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := tracing.InitOpenTelemetry("rageshake"); err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	err := cli.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = tracing.ShutdownOpenTelemetry(ctx)

	if err != nil {
		cancel()
		os.Exit(1)
	}
}
