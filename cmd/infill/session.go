package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/controller"
	"github.com/rickchristie/infill/events"
	"github.com/rickchristie/infill/generator"
	"github.com/rickchristie/infill/loggers"
	"github.com/rickchristie/infill/metrics"
	"github.com/rickchristie/infill/models"
	"github.com/rickchristie/infill/settings"
	"golang.org/x/sync/errgroup"
)

// session wires one document to a controller.
type session struct {
	doc     *fileDocument
	client  *generator.Client
	ctrl    *controller.Controller
	metrics *prometheus.Registry
	logger  *slog.Logger
	closers []io.Closer
}

func newSession(opts *options, store *settings.Store, path string, logger *slog.Logger) (*session, error) {
	current, err := store.Load()
	if err != nil {
		return nil, err
	}

	doc, err := openFileDocument(path, logger)
	if err != nil {
		return nil, err
	}
	doc.SetCursor(infill.Position{Line: opts.line})

	s := &session{
		doc:     doc,
		client:  generator.New(models.NewOpenAIModel, current, generator.WithLogger(logger)),
		metrics: prometheus.NewRegistry(),
		logger:  logger,
	}
	s.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := events.NewRegistry().Subscribe(metrics.New(s.metrics))
	if opts.trace {
		hook := loggers.NewLoggerHookWithWriter(os.Stderr)
		hook.StateChanges = true
		registry.Subscribe(hook)
	}

	var prompter controller.Prompter
	if opts.yes {
		prompter = autoPrompter{out: os.Stdout}
	} else {
		tp, err := newTerminalPrompter(doc)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, tp)
		prompter = tp
	}

	policy, err := parseFailurePolicy(opts.failurePolicy)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.ctrl, err = controller.New(controller.Config{
		Settings:      current,
		Document:      doc,
		Generator:     s.client,
		Prompter:      prompter,
		Events:        registry,
		Logger:        logger,
		FailurePolicy: policy,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// reconfigure installs settings loaded after a file change.
func (s *session) reconfigure(next infill.Settings) {
	if err := s.ctrl.UpdateSettings(next); err != nil {
		s.logger.Warn("settings change rejected", "error", err)
		return
	}
	s.client.Reconfigure(next)
}

func (s *session) Close() {
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	for _, c := range s.closers {
		c.Close()
	}
}

// runWatch keeps the document under watch until ctx is done.
func runWatch(ctx context.Context, opts *options, store *settings.Store, path string, logger *slog.Logger) error {
	s, err := newSession(opts, store, path, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("%sWatching %s (Ctrl-C to stop)%s\n", colorGreen, s.doc.path, colorReset)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watchDocument(ctx, s.doc, s.ctrl.OnChange, logger)
	})
	g.Go(func() error {
		return store.Watch(ctx, s.reconfigure)
	})
	if opts.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, opts.metricsAddr, s.metrics, logger)
		})
	}
	return g.Wait()
}

// runOnce runs a single explicit cycle against the document.
func runOnce(ctx context.Context, opts *options, store *settings.Store, path string, logger *slog.Logger) error {
	s, err := newSession(opts, store, path, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ctrl.Invoke(); err != nil {
		if errors.Is(err, infill.ErrNoMatch) {
			fmt.Printf("%sNo trigger found in %s.%s\n", colorYellow, s.doc.path, colorReset)
			return nil
		}
		return err
	}

	done := make(chan struct{})
	go func() {
		s.ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Close cancels open dialogs; the deferred Close waits for the cycle.
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func parseFailurePolicy(s string) (controller.FailurePolicy, error) {
	switch s {
	case "", "offer":
		return controller.FailureOfferAsCandidate, nil
	case "report":
		return controller.FailureReport, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q (want offer or report)", s)
	}
}
