package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itish2003/docqa/config"
	"github.com/itish2003/docqa/controller"
	"github.com/itish2003/docqa/logging"
	"github.com/itish2003/docqa/services"
)

func main() {
	var (
		configPath string
		port       string
	)

	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Upload a PDF and ask questions about it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return run(cmd.Context(), configPath, cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides config)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("FATAL")
	}
}

func run(ctx context.Context, configPath string, cfg *config.Config) error {
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	extractor, err := services.NewPDFExtractorFromConfig(cfg.Ingest)
	if err != nil {
		return err
	}
	embedder, err := services.NewEmbedderFromConfig(ctx, cfg.Embedder)
	if err != nil {
		return err
	}
	generator, err := services.NewGeneratorFromConfig(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	provider, err := services.NewIndexProviderFromConfig(cfg.Index)
	if err != nil {
		return err
	}
	if closer, ok := provider.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close index provider")
			}
		}()
	}
	log.Info().
		Str("pdf_backend", cfg.Ingest.PDFBackend).
		Str("index_backend", cfg.Index.Backend).
		Str("embedder", cfg.Embedder.Provider+"/"+cfg.Embedder.Model).
		Str("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model).
		Msg("backends ready")

	registry := services.NewSessionRegistry(
		services.WithMaxSessions(cfg.Sessions.MaxSessions),
		services.WithTTL(cfg.Sessions.TTL),
	)
	go registry.Run(ctx, time.Minute)

	ragService := services.NewRAGService(
		services.NewDocumentIngestor(extractor),
		services.NewIndexBuilder(embedder, provider, cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Retrieval.EmbedConcurrency),
		services.NewChainFactory(embedder, generator, cfg.Retrieval.TopK),
		registry,
		cfg.Retrieval.MaxConcurrentBuilds,
	)
	ragController := controller.NewRAGController(ragService, cfg.Server.MaxUploadBytes)

	go func() {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			logging.SetLevel(next.Log.Level)
		})
		if err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := controller.NewRouter(ragController, cfg.Server.MaxUploadBytes)
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("server starting on http://localhost:%s", cfg.Server.Port)
		log.Info().Msg("endpoints: GET /health, POST /upload, POST /ask, DELETE /sessions/:id")
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

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
