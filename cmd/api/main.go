package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"qolintake/api/internal/analysis"
	"qolintake/api/internal/app"
	"qolintake/api/internal/audit"
	"qolintake/api/internal/authpw"
	"qolintake/api/internal/blobstore"
	"qolintake/api/internal/config"
	"qolintake/api/internal/docstore"
	"qolintake/api/internal/email"
	"qolintake/api/internal/export"
	"qolintake/api/internal/pipeline"
	"qolintake/api/internal/reportview"
	"qolintake/api/internal/search"
	"qolintake/api/internal/users"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	docs, err := openDocstore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("document store init failed")
	}
	defer docs.Close()

	userStore := users.New(docs)
	authSvc := authpw.NewService(userStore)
	analyzer := analysis.New(cfg.AnalysisURL, logger)
	auditor := audit.New(cfg.AuditDir)
	reports := reportview.New(docs, logger)

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if mailer.IsConfigured() {
		logger.Info().Str("host", cfg.SMTPHost).Msg("report-ready emails enabled")
	}

	searchSvc := search.NewService(search.NewScan(docs, userStore), userStore, logger)
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		searchSvc = searchSvc.WithMeili(meiliClient)
	}

	intake := pipeline.New(docs, userStore, analyzer, logger).
		WithAuditor(auditor).
		WithIndexer(searchSvc).
		WithNotifier(mailer)

	blobs, err := openBlobstore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("pdf storage init failed")
	}

	exporter := export.NewService(reports, userStore)

	service := app.NewService(
		[]byte(cfg.JWTSecret),
		cfg.TokenTTL,
		docs,
		userStore,
		authSvc,
		intake,
		reports,
		logger,
	).
		WithExporter(exporter).
		WithSearch(searchSvc).
		WithAuditor(auditor).
		WithBlobs(blobs)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := newServer(cfg.Addr, httpServer.Handler())

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("backend", cfg.StorageBackend).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// newServer leaves the write deadline unset: a form submission holds the
// connection through the whole analysis retry window, which can run past
// five minutes when every attempt stalls. Slow-client exposure is bounded by
// the read and idle deadlines instead.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func openDocstore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (docstore.Store, error) {
	switch cfg.StorageBackend {
	case "redis":
		logger.Info().Str("url", cfg.RedisURL).Msg("using redis document store")
		return docstore.NewRedisStore(cfg.RedisURL)
	case "postgres":
		logger.Info().Msg("using postgres document store")
		return docstore.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		logger.Info().Str("dir", cfg.DataDir).Msg("using file document store")
		return docstore.NewFileStore(cfg.DataDir)
	}
}

func openBlobstore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		return blobstore.NewMinio(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return blobstore.NewLocal(cfg.UploadsDir)
}
