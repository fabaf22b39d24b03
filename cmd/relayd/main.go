// Package main implements the contact relay daemon. It accepts contact form
// submissions on POST /send and relays each one to the site owner's mailbox
// through the configured SMTP server or mail provider.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"contactrelay/internal/config"
	"contactrelay/internal/logging"
	"contactrelay/internal/relay"
	"contactrelay/internal/transport"
)

const appName = "relayd"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := config.Path(appName)
	if p := os.Getenv("CONTACT_CONFIG"); p != "" {
		path = p
	}

	if _, err := config.EnsureFile(appName, path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save configuration: %v\n", err)
	}

	cfg, _, err := config.LoadFile(appName, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(ctx, &cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logging.Default()

	svc, err := newService(cfg, log)
	if err != nil {
		log.Error(ctx, "Failed to create transport", "error", err.Error())
		_ = logging.Shutdown(ctx)
		os.Exit(1)
	}
	handler := relay.NewHandler(svc, log)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info(ctx, "Starting contact relay",
		"addr", server.Addr,
		"transport_mode", cfg.Transport.Mode,
		"owner", cfg.Owner.Address)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		handleSignals(gctx, sigChan, path, handler, log)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		log.Info(shutdownCtx, "Initiating shutdown sequence")
		return server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if runErr != nil {
		log.Error(ctx, "Server error", "error", runErr.Error())
	}

	closeTransport(ctx, handler.Service(), log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := logging.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func newService(cfg *config.Config, log logging.Logger) (*relay.Service, error) {
	t, err := transport.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return relay.New(cfg, t, log), nil
}

// handleSignals blocks until shutdown is requested or ctx ends.
// SIGHUP reloads the configuration and swaps in a freshly built service.
func handleSignals(ctx context.Context, sigChan chan os.Signal, path string, handler *relay.Handler, log logging.Logger) {
	log.Debug(ctx, "Starting signal handler")
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				if err := reloadConfig(ctx, path, handler, log); err != nil {
					log.Error(ctx, "Failed to reload configuration", "error", err.Error())
				}
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info(ctx, "Received shutdown signal", "signal", sig.String())
				return
			}
		}
	}
}

// reloadConfig reloads the configuration, reinitializes the logger and
// replaces the relay service. The listen address is not changed by a reload.
func reloadConfig(ctx context.Context, path string, handler *relay.Handler, log logging.Logger) error {
	newConfig, configExists, err := config.LoadFile(appName, path)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}
	if !configExists {
		return fmt.Errorf("configuration file not found")
	}

	if err := logging.Init(ctx, &newConfig.Logging); err != nil {
		return fmt.Errorf("failed to reinitialize logger: %w", err)
	}

	svc, err := newService(newConfig, log)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	old := handler.Swap(svc)
	closeTransport(ctx, old, log)

	log.Info(ctx, "Configuration reloaded successfully", "transport_mode", newConfig.Transport.Mode)
	return nil
}

func closeTransport(ctx context.Context, svc *relay.Service, log logging.Logger) {
	if svc == nil {
		return
	}
	if c, ok := svc.Transport().(transport.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn(ctx, "Failed to close transport", "error", err.Error())
		}
	}
}
