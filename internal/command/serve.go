package command

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/router"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/internal/version"
	"github.com/bingooyong/apphub/pkg/database"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()
		return serve(cmd.Context(), rt)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, log := rt.cfg, rt.log

	log.Info("apphub starting",
		zap.String("version", version.GetVersion()),
		zap.String("mode", cfg.Server.Mode),
	)

	// 自动迁移数据库表结构
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, rt.db, cfg.Database.Driver, log); err != nil {
			return err
		}
	}

	blobs, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		return err
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireTime)
	m := metrics.New()
	store := repository.NewStore(rt.db)

	gin.SetMode(cfg.Server.Mode)
	engine := router.New(router.Options{
		Config:   cfg,
		DB:       rt.db,
		JWT:      jwtManager,
		Metrics:  m,
		Services: router.NewServices(cfg, store, blobs, m, jwtManager, log),
		Logger:   log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			return err
		}
		return nil
	case sig := <-quit:
		log.Info("apphub shutting down", zap.String("signal", sig.String()))
	}

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	log.Info("apphub stopped")
	return nil
}
