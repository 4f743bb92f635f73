package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"propscore/internal/history"
	"propscore/internal/metrics"
	"propscore/internal/score/scorer"
	"propscore/internal/server"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func NewServeCmd(root *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root)
		},
	}
}

func runServe(ctx context.Context, root *RootArgs) error {
	config := root.Config()

	a, err := newApp(config)
	if err != nil {
		slog.Error("Unable to initialize scoring", "error", err)
		return err
	}

	appCtx, appCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer appCancel()

	results := history.NewResultsRepository(config.History.Length, config.History.Ttl)
	go results.Serve()
	defer results.Stop()

	m := metrics.New()
	opts := []scorer.Option{scorer.WithHistory(results), scorer.WithMetrics(m)}
	if sink := a.sinks(false); sink != nil {
		defer sink.Close()
		opts = append(opts, scorer.WithSink(sink))
	}
	batch := scorer.NewBatchScorer(a.engine, a.profiles, opts...)

	router := server.NewApiV1Router(a.engine, batch, results, m, config.Scoring.IdentifierField, config.Server.Token)
	srv := server.NewServer(config.Server.Address, router)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	slog.Info("Server listening " + config.Server.Address)

	select {
	case <-appCtx.Done():
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown", "error", err)
	}
	slog.Info("Server stopped")

	return nil
}
