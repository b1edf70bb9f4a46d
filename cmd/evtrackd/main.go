package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"evtrack-backend/lib/configutil"
	"evtrack-backend/lib/runlog"
	"evtrack-backend/lib/telemetry"
	"evtrack-backend/lib/util/serviceutil"
	"evtrack-backend/services/automation"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(*verbose)
	err := telemetry.SetupFromEnv(ctx, "evtrackd")
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
	} else {
		defer telemetry.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	runs, err := runlog.Open(ctx, cfg.Runlog)
	if err != nil {
		serviceutil.Fatal("open run log", err)
	}
	defer runs.Close()

	service := automation.NewService(cfg.Evtrack, runs)
	hub := newProgressHub()
	router := NewRouter(service, hub, cfg.ApiKeys)

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("listening...", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		serviceutil.Fatal(fmt.Sprintf("failed to listen on port %d", cfg.Port), err)
	}
}
