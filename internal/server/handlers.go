package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vegasq/parqview/archive"
	"github.com/vegasq/parqview/internal/apperr"
	"github.com/vegasq/parqview/internal/logger"
	"github.com/vegasq/parqview/internal/metrics"
	"github.com/vegasq/parqview/reader"
	"github.com/vegasq/parqview/stats"
	"github.com/vegasq/parqview/table"
)

type uploadResponse struct {
	Filename   string                   `json:"filename"`
	NumRows    int                      `json:"num_rows"`
	NumColumns int                      `json:"num_columns"`
	Schema     []table.ColumnSchema     `json:"schema"`
	Sample     []map[string]interface{} `json:"sample"`
	Stats      stats.Summary            `json:"stats"`
	Persisted  bool                     `json:"persisted"`
}

type previewResponse struct {
	Preview []map[string]interface{} `json:"preview"`
	Total   int                      `json:"total"`
}

type sqlRequest struct {
	Query *string `json:"query"`
	Limit *int    `json:"limit"`
}

type sqlResponse struct {
	RowCount  int                      `json:"row_count"`
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	Stats     stats.Summary            `json:"stats"`
	Truncated bool                     `json:"truncated"`
}

type datasetResponse struct {
	Filename   string               `json:"filename"`
	Source     string               `json:"source"`
	NumRows    int                  `json:"num_rows"`
	NumColumns int                  `json:"num_columns"`
	Schema     []table.ColumnSchema `json:"schema"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":        Title,
		"Version":      s.version,
		"Engine":       s.runner.Engine(),
		"PreviewLimit": s.cfg.Preview.DefaultLimit,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx, s.logger)

	t, filename, persisted, err := s.upload(c)
	metrics.Uploads.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Info("upload rejected", zap.String("filename", filename), zap.Error(err))
		fail(c, err)
		return
	}

	resp := uploadResponse{
		Filename:   filename,
		NumRows:    t.NumRows(),
		NumColumns: t.NumColumns(),
		Schema:     t.Schema(),
		Sample:     t.Rows(),
		Persisted:  persisted,
	}
	includeStats, _ := strconv.ParseBool(c.DefaultPostForm("include_stats", "true"))
	if includeStats {
		resp.Stats = stats.Summarize(t)
	}
	respond(c, http.StatusOK, resp)
}

// upload validates, decodes, stores and archives the uploaded file.
func (s *Server) upload(c *gin.Context) (*table.Table, string, bool, error) {
	ctx := c.Request.Context()
	limit := s.cfg.Server.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", false, apperr.New(apperr.KindValidation, fmt.Sprintf("Upload exceeds the %d byte limit", limit))
		}
		return nil, "", false, apperr.Wrap(err, apperr.KindMissingField, "file is required")
	}
	if _, err := strconv.ParseBool(c.DefaultPostForm("include_stats", "true")); err != nil {
		return nil, fh.Filename, false, apperr.Wrap(err, apperr.KindMissingField, "include_stats must be a boolean")
	}

	ext := s.cfg.Upload.Extension
	if fh.Filename == "" || !strings.HasSuffix(fh.Filename, ext) {
		return nil, fh.Filename, false, apperr.New(apperr.KindValidation, fmt.Sprintf("Only %s files are supported", ext))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fh.Filename, false, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fh.Filename, false, fmt.Errorf("read upload: %w", err)
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	t, err := reader.Load(data)
	if err != nil {
		return nil, fh.Filename, false, apperr.Wrap(err, apperr.KindDecode, "Failed to read parquet: "+decodeDetail(err))
	}
	metrics.RowsLoaded.WithLabelValues("upload").Add(float64(t.NumRows()))

	res := archive.Persist(ctx, s.archive, fh.Filename, data)
	log := logger.WithContext(ctx, s.logger)
	if res.Err != nil {
		log.Warn("archive upload failed",
			zap.String("archive", s.archive.Name()),
			zap.String("filename", fh.Filename),
			zap.Error(res.Err))
	}

	s.store.Put(t, fh.Filename, res.Location)
	log.Info("dataset loaded",
		zap.String("filename", fh.Filename),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Int("bytes", len(data)),
		zap.Bool("persisted", res.Persisted),
		zap.String("location", res.Location))
	return t, fh.Filename, res.Persisted, nil
}

func (s *Server) handlePreview(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		fail(c, apperr.New(apperr.KindMissingField, "path is required"))
		return
	}
	limit, err := intParam(c, "limit", s.cfg.Preview.DefaultLimit)
	if err != nil {
		fail(c, err)
		return
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		fail(c, err)
		return
	}

	t, err := reader.LoadFile(path)
	if err != nil {
		if errors.Is(err, reader.ErrNotFound) {
			fail(c, apperr.Wrap(err, apperr.KindNotFound, "File not found"))
			return
		}
		fail(c, apperr.Wrap(err, apperr.KindDecode, err.Error()))
		return
	}
	metrics.RowsLoaded.WithLabelValues("preview").Add(float64(t.NumRows()))

	if columns := splitColumns(c.Query("columns")); len(columns) > 0 {
		t, err = t.Select(columns)
		if err != nil {
			fail(c, apperr.Wrap(err, apperr.KindValidation, err.Error()))
			return
		}
	}

	respond(c, http.StatusOK, previewResponse{
		Preview: t.Slice(offset, limit).Rows(),
		Total:   t.NumRows(),
	})
}

func (s *Server) handleSQL(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, apperr.Wrap(err, apperr.KindValidation, "failed to read request body"))
		return
	}
	var req sqlRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, apperr.Wrap(err, apperr.KindMissingField, "request body must be a JSON object"))
		return
	}
	if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
		fail(c, apperr.New(apperr.KindMissingField, "query is required"))
		return
	}
	if req.Limit != nil && *req.Limit < 0 {
		fail(c, apperr.New(apperr.KindMissingField, "limit must not be negative"))
		return
	}

	ds, err := s.store.Get(ctx)
	if err != nil {
		fail(c, err)
		return
	}

	res, err := s.runner.Run(ctx, ds.Table, *req.Query)
	if err != nil {
		fail(c, err)
		return
	}

	out, truncated := res.Table, res.Truncated
	if req.Limit != nil && out.NumRows() > *req.Limit {
		out = out.Slice(0, *req.Limit)
		truncated = true
	}

	respond(c, http.StatusOK, sqlResponse{
		RowCount:  out.NumRows(),
		Columns:   out.ColumnNames(),
		Rows:      out.Rows(),
		Stats:     stats.Summarize(out),
		Truncated: truncated,
	})
}

func (s *Server) handleDataset(c *gin.Context) {
	ds, err := s.store.Get(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, datasetResponse{
		Filename:   ds.Name,
		Source:     ds.Source,
		NumRows:    ds.Table.NumRows(),
		NumColumns: ds.Table.NumColumns(),
		Schema:     ds.Table.Schema(),
	})
}

// intParam parses a non-negative integer query parameter.
func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.KindMissingField, name+" must be an integer")
	}
	if n < 0 {
		return 0, apperr.New(apperr.KindValidation, name+" must not be negative")
	}
	return n, nil
}

func splitColumns(raw string) []string {
	if raw == "" {
		return nil
	}
	var columns []string
	for _, col := range strings.Split(raw, ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

// decodeDetail strips the loader's own prefix from a decode error.
func decodeDetail(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, reader.ErrDecode.Error()+": ")
}
