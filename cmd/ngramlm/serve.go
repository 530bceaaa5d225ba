package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ngramlm/internal/controller"
	"ngramlm/internal/handler"
	"ngramlm/internal/service/ngram"
	"ngramlm/pkg/mcp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the configured models over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.App.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ngramService, err := ngram.NewNGramService(cfg, logger)
			if err != nil {
				return err
			}
			if err := ngramService.LoadConfigured(ctx); err != nil {
				return err
			}
			logger.Info("N-gram service initialized successfully", zap.Int("models", len(ngramService.List())))

			ngramController := controller.NewNGramController(ngramService, logger)
			mcpServer := mcp.NewNGramMCPServer(ngramService, logger)
			router := handler.SetupRouter(ngramController, mcpServer, logger)

			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.App.Port),
				Handler: router,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting server", zap.Int("port", cfg.App.Port))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config)")
	return cmd
}
