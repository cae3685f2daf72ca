package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/edgelink/internal/auth"
	"github.com/danmuck/edgelink/internal/link"
	"github.com/danmuck/edgelink/internal/observability"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

const version = "0.1.0"

// Server is the HTTP status surface of one link.
type Server struct {
	Name     string
	Appeared time.Time

	link     *link.Link
	catalog  *schema.Catalog
	registry *prometheus.Registry
	router   *gin.Engine
}

type options struct {
	corsOrigins []string
	token       string
}

type Option func(*options)

func WithCORSOrigins(origins []string) Option {
	return func(o *options) { o.corsOrigins = origins }
}

// WithToken requires "Authorization: Bearer token" on every route except
// /health. An empty token leaves the server open.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// New builds the engine and registers routes. The link collector goes to a
// registry owned by the server, so several servers can share a process.
func New(name string, l *link.Link, catalog *schema.Catalog, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.AppLogger(name)))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(o.corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	if o.token != "" {
		r.Use(auth.Middleware(auth.StaticToken{Token: o.token}, "/health"))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(observability.NewLinkCollector(l))

	s := &Server{
		Name:     name,
		Appeared: time.Now(),
		link:     l,
		catalog:  catalog,
		registry: reg,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, s.registry}
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	s.router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.link.Stats())
	})

	s.router.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"messages": listDefinitions(s.catalog),
		})
	})

	s.router.GET("/catalog/:name", func(c *gin.Context) {
		def, err := s.catalog.Lookup(c.Param("name"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, schema.ErrNoSuchMessage) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, describe(def))
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("monitor", s.Name).Str("addr", addr).Msg("monitor listening")
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Str("monitor", s.Name).Msg("monitor shutdown failed")
		return err
	}
	log.Info().Str("monitor", s.Name).Msg("monitor stopped")
	return nil
}

type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Size is 0 for variable-length fields.
	Size int `json:"size"`
}

type DefinitionInfo struct {
	Class   string      `json:"class"`
	ClassID uint8       `json:"class_id"`
	ID      uint8       `json:"id"`
	Name    string      `json:"name"`
	MinSize int         `json:"min_size"`
	Fields  []FieldInfo `json:"fields"`
}

func describe(def *schema.MessageDefinition) DefinitionInfo {
	fields := make([]FieldInfo, 0, def.NumFields())
	for _, f := range def.Fields() {
		fields = append(fields, FieldInfo{Name: f.Name, Type: f.Type.String(), Size: f.ByteSize})
	}
	return DefinitionInfo{
		Class:   def.ClassName,
		ClassID: def.ClassID,
		ID:      def.ID,
		Name:    def.Name,
		MinSize: def.MinimumSize(),
		Fields:  fields,
	}
}

func listDefinitions(catalog *schema.Catalog) []DefinitionInfo {
	if catalog == nil {
		return nil
	}
	defs := catalog.Definitions()
	list := make([]DefinitionInfo, 0, len(defs))
	for _, def := range defs {
		list = append(list, describe(def))
	}
	return list
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
