// Package server exposes the parquet viewer over HTTP.
//
// Routes:
//
//	GET  /             landing page
//	POST /api/upload   decode an uploaded file and make it the current dataset
//	GET  /api/preview  page through a parquet file on the server's filesystem
//	POST /api/sql      query the current dataset as the relation "data"
//	GET  /api/dataset  describe the current dataset
//	GET  /healthz      liveness
//	GET  /metrics      Prometheus exposition
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vegasq/parqview/archive"
	"github.com/vegasq/parqview/internal/config"
	"github.com/vegasq/parqview/query"
	"github.com/vegasq/parqview/reader"
	"github.com/vegasq/parqview/store"
	"github.com/vegasq/parqview/table"
)

// Title is shown on the landing page.
const Title = "Parquet Viewer"

const shutdownTimeout = 5 * time.Second

//go:embed web/index.html
var webFS embed.FS

// Options holds the dependencies of a Server. Only Config is required.
type Options struct {
	Config  *config.Config
	Archive archive.Archive
	Store   *store.Store
	Runner  *query.Runner
	Logger  *zap.Logger
	Version string
}

// Server serves the HTTP API.
type Server struct {
	cfg     *config.Config
	archive archive.Archive
	store   *store.Store
	runner  *query.Runner
	logger  *zap.Logger
	version string
	engine  *gin.Engine
}

// New wires a Server from opts, filling in defaults for missing
// dependencies.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config required")
	}
	s := &Server{
		cfg:     opts.Config,
		archive: opts.Archive,
		store:   opts.Store,
		runner:  opts.Runner,
		logger:  opts.Logger,
		version: opts.Version,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.archive == nil {
		s.archive = archive.None{}
	}
	if s.store == nil {
		s.store = store.New(ArchiveReloader(s.archive))
	}
	if s.runner == nil {
		engine, err := query.NewEngine(s.cfg.Query.Engine)
		if err != nil {
			return nil, err
		}
		s.runner = query.NewRunner(engine,
			query.WithMaxRows(s.cfg.Query.MaxRows),
			query.WithLogger(s.logger))
	}

	tmpl, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	s.engine = s.routes(tmpl)
	return s, nil
}

func (s *Server) routes(tmpl *template.Template) *gin.Engine {
	if !s.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.SetHTMLTemplate(tmpl)
	r.Use(requestID(), accessLog(s.logger), observe(), recovery(s.logger))

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/upload", s.handleUpload)
		api.GET("/preview", s.handlePreview)
		api.POST("/sql", s.handleSQL)
		api.GET("/dataset", s.handleDataset)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Render(http.StatusNotFound, jsonRender{Data: errorResponse{Detail: "Not Found"}})
	})
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the dataset store used by the server.
func (s *Server) Store() *store.Store {
	return s.store
}

// Restore points the store at the most recently archived upload. The
// dataset itself is decoded on first use.
func (s *Server) Restore(ctx context.Context) error {
	location, err := s.archive.Latest(ctx)
	if errors.Is(err, archive.ErrNotFound) || errors.Is(err, archive.ErrDisabled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find latest upload: %w", err)
	}
	s.store.Remember(location)
	s.logger.Info("restoring last upload",
		zap.String("archive", s.archive.Name()),
		zap.String("location", location))
	return nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ArchiveReloader returns a store.Reloader that decodes uploads kept in a.
func ArchiveReloader(a archive.Archive) store.Reloader {
	return store.ReloaderFunc(func(ctx context.Context, source string) (*table.Table, error) {
		data, err := a.Open(ctx, source)
		if err != nil {
			return nil, err
		}
		return reader.Load(data)
	})
}
