package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/backup"
	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/cmd/greenscope/server"
	"github.com/greenscope/greenscope/service"
	"github.com/greenscope/greenscope/store"
)

func main() {

	var (
		port, catalogPath, configPath string
		skipTLS, watchCatalog         bool
	)

	flag.StringVar(&port, "port", "8080", "Port for HTTP server")
	flag.BoolVar(&skipTLS, "skip-tls", false, "Run without TLS")
	flag.StringVar(&catalogPath, "catalog", "", "Path to a sector question catalog (embedded catalog when empty)")
	flag.BoolVar(&watchCatalog, "watch-catalog", false, "Reload the catalog when the file changes")
	flag.StringVar(&configPath, "config", "./docs/config.yaml", "Path to greenscope config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := server.LoadConfig(filepath.Clean(configPath))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if catalogPath != "" {
		catalogPath = filepath.Clean(catalogPath)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		logger.Fatal("failed to load question catalog", zap.Error(err))
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	issuer := auth.NewIssuer(
		cfg.Auth.Secret,
		time.Duration(cfg.Auth.AccessExpiryMins)*time.Minute,
		time.Duration(cfg.Auth.RefreshExpiryHours)*time.Hour,
	)
	backups := backup.NewManager(cfg.Backup.Dir, cfg.Database.Path, cfg.Evidence.Dir, cfg.Backup.Keep, db, logger)

	svc := service.NewService(db, cat, issuer, backups, service.Config{
		EvidenceDir:    cfg.Evidence.Dir,
		MaxUploadBytes: cfg.Evidence.MaxUploadMB << 20,
	}, logger)

	s := server.NewGinServer(svc, port, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", s.Addr), zap.Bool("tls", !skipTLS))
		var err error
		if skipTLS {
			logger.Warn("insecure connections permitted, TLS is highly recommended for production")
			err = s.ListenAndServe()
		} else {
			cert, key := server.SetupTLS(s, cfg)
			err = s.ListenAndServeTLS(cert, key)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if watchCatalog && catalogPath != "" {
		g.Go(func() error {
			if err := catalog.Watch(ctx, cat, catalogPath, logger); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
