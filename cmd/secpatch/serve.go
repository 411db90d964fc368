package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fumiya-kume/secpatch/pkg/cache"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/config"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/metrics"
	"github.com/fumiya-kume/secpatch/pkg/server"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve findings and patches over HTTP",
	Long: `Serve findings and patches over HTTP.

Routes:
  POST /v2/vul     findings for {"code": "..."}
  POST /v1/patch   patched fragment for {"code": "...", "families": [...]}
  GET  /healthz    liveness
  GET  /version    build information
  GET  /metrics    Prometheus metrics (when server.metrics is enabled)

Patch results are cached in Redis when server.cache.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default from server.address)")
	serveCmd.Flags().String("redis", "", "redis address; enables the patch cache")
	serveCmd.Flags().Bool("no-metrics", false, "disable the /metrics route")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg := *currentConfig()
	flags := cmd.Flags()
	if addr, _ := flags.GetString("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	if redisAddr, _ := flags.GetString("redis"); redisAddr != "" {
		cfg.Server.Cache.RedisAddr = redisAddr
		cfg.Server.Cache.Enabled = true
	}
	if noMetrics, _ := flags.GetBool("no-metrics"); noMetrics {
		cfg.Server.Metrics = false
	}

	log := logger.GetGlobalLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, closeCache, err := newServer(ctx, &cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newServer wires the pipeline, metrics and optional cache described by cfg.
// The returned func closes the cache connection.
func newServer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*server.Server, func(), error) {
	pipelineOpts, err := cfg.ToPipelineOptions(log)
	if err != nil {
		return nil, nil, err
	}

	opts := server.Options{
		Address:  cfg.Server.Address,
		Catalog:  catalog.Default(),
		Pipeline: pipelineOpts,
		Logger:   log,
	}
	if cfg.Server.Metrics {
		opts.Metrics = metrics.New()
	}

	closeCache := func() {}
	if cfg.Server.Cache.Enabled {
		cacheCfg := cache.Config{
			Addr:   cfg.Server.Cache.RedisAddr,
			Prefix: cfg.Server.Cache.Prefix,
			TTL:    cfg.Server.Cache.TTL,
		}
		client, err := cache.NewClient(ctx, cacheCfg)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = cache.New(client, cacheCfg, log)
		closeCache = func() { _ = client.Close() }
	}

	srv, err := server.New(opts)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return srv, closeCache, nil
}
