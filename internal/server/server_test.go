package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/parqview/archive"
	"github.com/vegasq/parqview/internal/config"
)

type abRow struct {
	A int64  `parquet:"a"`
	B string `parquet:"b"`
}

func abParquet(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[abRow](&buf)
	_, err := w.Write([]abRow{{1, "x"}, {2, "y"}, {3, "z"}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type testServer struct {
	*Server
	archive *archive.Memory
}

func newTestServer(t *testing.T, modify ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.Archive = archive.BackendMemory
	for _, m := range modify {
		m(cfg)
	}
	mem := archive.NewMemory()
	s, err := New(Options{Config: cfg, Archive: mem, Version: "test"})
	require.NoError(t, err)
	return &testServer{Server: s, archive: mem}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sqlRequestBody(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/sql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *testServer) mustUpload(t *testing.T, fields map[string]string) map[string]interface{} {
	t.Helper()
	rec, body := s.do(t, uploadRequest(t, "test.parquet", abParquet(t), fields))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Parquet Viewer")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	body := s.mustUpload(t, map[string]string{"include_stats": "true"})

	assert.Equal(t, "test.parquet", body["filename"])
	assert.EqualValues(t, 3, body["num_rows"])
	assert.EqualValues(t, 2, body["num_columns"])
	assert.Equal(t, true, body["persisted"])

	schema := body["schema"].([]interface{})
	require.Len(t, schema, 2)
	assert.Equal(t, "a", schema[0].(map[string]interface{})["name"])
	assert.Equal(t, "b", schema[1].(map[string]interface{})["name"])

	assert.Len(t, body["sample"].([]interface{}), 3)

	st := body["stats"].(map[string]interface{})
	a := st["a"].(map[string]interface{})
	assert.EqualValues(t, 1, a["min"])
	assert.EqualValues(t, 3, a["max"])
	assert.EqualValues(t, 2.0, a["mean"])
	assert.EqualValues(t, 0, a["nulls"])
	b := st["b"].(map[string]interface{})
	assert.EqualValues(t, 3, b["unique"])
	assert.EqualValues(t, 0, b["nulls"])

	latest, err := s.archive.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory://test.parquet", latest)
}

func TestUpload_StatsDefaultAndDisabled(t *testing.T) {
	s := newTestServer(t)

	body := s.mustUpload(t, nil)
	assert.NotNil(t, body["stats"], "stats are included by default")

	body = s.mustUpload(t, map[string]string{"include_stats": "false"})
	v, ok := body["stats"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantDetail string
	}{
		{
			name:       "wrong extension",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "test.csv", abParquet(t), nil) },
			wantStatus: http.StatusBadRequest,
			wantDetail: "Only .parquet files are supported",
		},
		{
			name:       "malformed content",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "bad.parquet", []byte("not parquet"), nil) },
			wantStatus: http.StatusBadRequest,
			wantDetail: "Failed to read parquet: ",
		},
		{
			name:       "missing file",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "", nil, map[string]string{"include_stats": "true"}) },
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "file is required",
		},
		{
			name: "invalid include_stats",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "test.parquet", abParquet(t), map[string]string{"include_stats": "maybe"})
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "include_stats must be a boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec, body := s.do(t, tt.req(t))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.True(t, strings.HasPrefix(body["detail"].(string), tt.wantDetail), "detail = %q", body["detail"])

			_, err := s.Store().Get(context.Background())
			assert.Error(t, err, "a rejected upload must not replace the dataset")
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxUploadBytes = 64 })
	rec, body := s.do(t, uploadRequest(t, "test.parquet", abParquet(t), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "byte limit")
}

func TestUpload_Idempotent(t *testing.T) {
	s := newTestServer(t)
	first := s.mustUpload(t, nil)
	second := s.mustUpload(t, nil)

	assert.Equal(t, first["schema"], second["schema"])
	assert.Equal(t, first["stats"], second["stats"])
}

func TestUpload_ArchiveDisabled(t *testing.T) {
	cfg := config.Default()
	s, err := New(Options{Config: cfg, Archive: archive.None{}})
	require.NoError(t, err)
	ts := &testServer{Server: s}

	body := ts.mustUpload(t, nil)
	assert.Equal(t, false, body["persisted"])
}

func TestSQL(t *testing.T) {
	for _, engine := range []string{"sqlite", "native"} {
		t.Run(engine, func(t *testing.T) {
			s := newTestServer(t, func(c *config.Config) { c.Query.Engine = engine })
			s.mustUpload(t, map[string]string{"include_stats": "false"})

			rec, body := s.do(t, sqlRequestBody(`{"query": "SELECT a, b FROM data WHERE a > 1", "limit": 10}`))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			assert.EqualValues(t, 2, body["row_count"])
			assert.Equal(t, []interface{}{"a", "b"}, body["columns"])
			assert.Len(t, body["rows"], 2)
			assert.Equal(t, false, body["truncated"])
			assert.Contains(t, body["stats"], "a")
		})
	}
}

func TestSQL_BeforeUpload(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, sqlRequestBody(`{"query": "SELECT * FROM data"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no dataset loaded", body["detail"])
}

func TestSQL_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"limit": 5}`},
		{"blank query", `{"query": "   "}`},
		{"not json", `SELECT 1`},
		{"negative limit", `{"query": "SELECT * FROM data", "limit": -1}`},
	}

	s := newTestServer(t)
	s.mustUpload(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, sqlRequestBody(tt.body))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestSQL_QueryError(t *testing.T) {
	s := newTestServer(t)
	s.mustUpload(t, nil)

	rec, body := s.do(t, sqlRequestBody(`{"query": "SELECT missing FROM data"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "query failed")

	// The dataset survives a failed query.
	rec, _ = s.do(t, sqlRequestBody(`{"query": "SELECT COUNT(*) AS n FROM data"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSQL_Truncation(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Query.MaxRows = 2 })
	s.mustUpload(t, nil)

	_, body := s.do(t, sqlRequestBody(`{"query": "SELECT a FROM data"}`))
	assert.EqualValues(t, 2, body["row_count"])
	assert.Equal(t, true, body["truncated"])

	_, body = s.do(t, sqlRequestBody(`{"query": "SELECT a FROM data", "limit": 1}`))
	assert.EqualValues(t, 1, body["row_count"])
	assert.Equal(t, true, body["truncated"])
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ab.parquet")
	require.NoError(t, os.WriteFile(path, abParquet(t), 0o644))
	return path
}

func previewRequest(params url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/preview?"+params.Encode(), nil)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	path := writeFixture(t)

	rec, body := s.do(t, previewRequest(url.Values{"path": {path}, "limit": {"2"}, "offset": {"1"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 3, body["total"])

	rows := body["preview"].([]interface{})
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, rows[0].(map[string]interface{})["a"])
	assert.EqualValues(t, 3, rows[1].(map[string]interface{})["a"])
}

func TestPreview_Defaults(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, previewRequest(url.Values{"path": {writeFixture(t)}}))
	assert.Len(t, body["preview"], 3)

	_, body = s.do(t, previewRequest(url.Values{"path": {writeFixture(t)}, "offset": {"10"}}))
	assert.Empty(t, body["preview"])
	assert.EqualValues(t, 3, body["total"])
}

func TestPreview_Columns(t *testing.T) {
	s := newTestServer(t)
	path := writeFixture(t)

	_, body := s.do(t, previewRequest(url.Values{"path": {path}, "columns": {"b"}}))
	row := body["preview"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"b": "x"}, row)

	rec, body := s.do(t, previewRequest(url.Values{"path": {path}, "columns": {"b,nope"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "nope")
}

func TestPreview_Errors(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.parquet")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))

	tests := []struct {
		name       string
		params     url.Values
		wantStatus int
		wantDetail string
	}{
		{"missing file", url.Values{"path": {filepath.Join(dir, "missing.parquet")}}, http.StatusNotFound, "File not found"},
		{"malformed file", url.Values{"path": {bad}}, http.StatusBadRequest, ""},
		{"no path", url.Values{}, http.StatusUnprocessableEntity, "path is required"},
		{"bad limit", url.Values{"path": {bad}, "limit": {"ten"}}, http.StatusUnprocessableEntity, "limit must be an integer"},
		{"negative offset", url.Values{"path": {bad}, "offset": {"-1"}}, http.StatusBadRequest, "offset must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, previewRequest(tt.params))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
		})
	}
}

func TestDataset(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.mustUpload(t, nil)
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test.parquet", body["filename"])
	assert.Equal(t, "memory://test.parquet", body["source"])
	assert.EqualValues(t, 3, body["num_rows"])
}

func TestRestore(t *testing.T) {
	mem := archive.NewMemory()
	_, err := mem.Save(context.Background(), "earlier.parquet", abParquet(t))
	require.NoError(t, err)

	s, err := New(Options{Config: config.Default(), Archive: mem})
	require.NoError(t, err)
	require.NoError(t, s.Restore(context.Background()))
	ts := &testServer{Server: s, archive: mem}

	rec, body := ts.do(t, sqlRequestBody(`{"query": "SELECT a FROM data WHERE b = 'y'"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, body["row_count"])
}

func TestRestore_EmptyArchive(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Store().Get(context.Background())
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec, _ = s.do(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parqview_http_requests_total")

	disabled := newTestServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	rec, _ = disabled.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
