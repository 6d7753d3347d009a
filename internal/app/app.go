package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"chase-arena/netcode/internal/relay"
	"chase-arena/netcode/logging"
	loggingSinks "chase-arena/netcode/logging/sinks"
)

// Run wires the relay together and serves it until the context is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := log.Default()

	logCfg := cfg.loggingConfig()
	named := make([]logging.NamedSink, 0, 2)
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logCfg.Console)})
	}
	if logCfg.HasSink("json") && logCfg.JSON.FilePath != "" {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json sink: %w", err)
		}
		defer file.Close()
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logCfg.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(nil, logCfg, named)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hub := relay.NewHub(cfg.relayConfig(), logger, router)
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Addr: cfg.Addr, Handler: relay.Router(hub, logger)}
	logger.Printf("relay listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("relay failed: %w", err)
		}
		return nil
	}
}
