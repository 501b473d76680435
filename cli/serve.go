package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/wemarket/qr-order/realtime"
	"github.com/wemarket/qr-order/router"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the websocket hub and the event dispatcher",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	var bridge *realtime.RedisBridge
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		bridge = realtime.NewRedisBridge(client, cfg.RedisChannel, hub)
		publisher = bridge
	}

	dispatcher := services.NewOutboxDispatcher(db, realtime.NewNotifier(publisher))
	dispatcher.Interval = cfg.OutboxEvery
	if len(cfg.KafkaBrokers) > 0 {
		sink := services.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer sink.Close()
		dispatcher.AddSink(sink)
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL())
	orders := services.NewOrderService(db)
	orders.SetNotifier(dispatcher)

	engine := router.SetupRouter(router.Deps{
		DB:        db,
		Config:    cfg,
		Tokens:    tokens,
		Access:    services.NewAccessService(db),
		Orders:    orders,
		Analytics: services.NewAnalyticsService(db),
		Hub:       hub,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := tokens.PruneBlacklist(); n > 0 {
					utils.InfoLogger.WithField("pruned", n).Debug("token blacklist pruned")
				}
			}
		}
	})
	g.Go(func() error {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		utils.InfoLogger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
