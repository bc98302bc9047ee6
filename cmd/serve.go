package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Run the HTTP API. A thumbnail worker runs in the same process unless --no-worker is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), noWorker)
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not consume thumbnail jobs in this process")
	return cmd
}

func runServe(parent context.Context, noWorker bool) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := a.apiServer()

	workerDone := make(chan struct{})
	if noWorker {
		close(workerDone)
	} else {
		go func() {
			defer close(workerDone)
			if err := a.worker().Run(ctx); err != nil {
				a.log.Error("thumbnail worker failed", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		stop()
		<-workerDone
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown failed", "error", err)
	}
	<-workerDone
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
