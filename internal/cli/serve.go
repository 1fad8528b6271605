package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/helper"
	"document-qa/internal/server"
	"document-qa/internal/watcher"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API for uploads, questions and chat sessions. With --watch,
documents copied into the input directory are ingested automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "watch the input directory (overrides ingest.watch)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := helper.CreateFolder(cfg.Ingest.InputDir); err != nil {
		return err
	}

	if serveWatch || cfg.Ingest.Watch {
		settle := time.Duration(cfg.Ingest.SettleDelayMS) * time.Millisecond
		w, err := watcher.New(cfg.Ingest.InputDir, settle, func(ctx context.Context, path string) error {
			_, err := a.ingestor.IngestFile(ctx, path)
			return err
		})
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Watcher stopped")
			}
		}()
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(server.Deps{
			GinMode:  cfg.Server.GinMode,
			InputDir: cfg.Ingest.InputDir,
			Ingestor: a.ingestor,
			Store:    a.store,
			Chat:     a.chat,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Int("vectors", a.store.Len()).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
