package main

//
// The run subcommand
//

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func runSubcommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the rollout engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(opts)
		},
		Args: cobra.NoArgs,
	}
}

func runMain(opts *globalOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	detector := sess.newCaptivePortal()
	poller := sess.newNetworkPoller()
	orch := sess.newOrchestrator(detector, poller)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		detector.Run(ctx, sess.config.CaptivePortal.PollInterval())
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.prefs.Watch(ctx); err != nil {
			log.Warnf("cannot watch %s: %s", sess.prefs.Path(), err.Error())
		}
	}()
	if addr := sess.config.MetricsAddress; addr != "" {
		wg.Add(1)
		go serveMetrics(ctx, wg, addr)
	}

	log.Infof("dohrollout running with home %s", sess.home)
	err = orch.Run(ctx)
	stop()
	wg.Wait()
	return err
}

// serveMetrics serves the prometheus metrics until the context is done.
func serveMetrics(ctx context.Context, wg *sync.WaitGroup, addr string) {
	defer wg.Done()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Infof("serving metrics at http://%s/metrics", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Warnf("metrics server: %s", err.Error())
	}
}
