// Package server exposes the pipeline over HTTP: a findings endpoint for the
// review UI, a patch endpoint, health, version and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/cache"
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/metrics"
	"github.com/fumiya-kume/secpatch/pkg/pipeline"
)

// Route paths
const (
	ScanPath    = "/v2/vul"
	PatchPath   = "/v1/patch"
	HealthPath  = "/healthz"
	VersionPath = "/version"
	MetricsPath = "/metrics"
)

// Options configures a Server. Pipeline holds the defaults; a patch request
// may narrow the families.
type Options struct {
	Address  string
	Catalog  *catalog.Catalog
	Pipeline pipeline.Options
	Cache    *cache.PatchCache
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

// Server is the HTTP front end
type Server struct {
	app  *fiber.App
	opts Options
	scan *pipeline.Pipeline
	log  *logger.Logger
}

// New builds the fiber app and registers every route
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Address == "" {
		opts.Address = ":8080"
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	opts.Pipeline.Logger = log

	scan, err := pipeline.New(opts.Catalog, opts.Pipeline)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
		ErrorHandler:          errorHandler,
	})

	s := &Server{app: app, opts: opts, scan: scan, log: log.WithPrefix("server")}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger(log.Logrus(), opts.Metrics))

	app.Post(ScanPath, s.handleScan)
	app.Post(PatchPath, s.handlePatch)
	app.Get(HealthPath, s.handleHealth)
	app.Get(VersionPath, s.handleVersion)
	if opts.Metrics != nil {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(opts.Metrics.Registry(), promhttp.HandlerOpts{}))
		app.Get(MetricsPath, func(c *fiber.Ctx) error {
			handler(c.Context())
			return nil
		})
	}

	return s, nil
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until Shutdown
func (s *Server) Run() error {
	s.log.Info("listening on %s", s.opts.Address)
	if err := s.app.Listen(s.opts.Address); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// pipelineFor returns the default pipeline or one narrowed to families
func (s *Server) pipelineFor(families []types.Family) (*pipeline.Pipeline, error) {
	if len(families) == 0 {
		return s.scan, nil
	}
	opts := s.opts.Pipeline
	opts.Families = families
	return pipeline.New(s.opts.Catalog, opts)
}

// variant names the settings that shape a patch, for cache keys
func variant(p *pipeline.Pipeline, opts pipeline.Options) string {
	names := make([]string, 0, len(p.Families()))
	for _, f := range p.Families() {
		names = append(names, string(f))
	}
	policy := opts.UnregisteredToolPolicy
	if policy == "" {
		policy = pipeline.PolicyPassthrough
	}
	return fmt.Sprintf("%s|%s|%t|%d", strings.Join(names, ","), policy, opts.TransportRequireSignal, opts.MaxInputLength)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
