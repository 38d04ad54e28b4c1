package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"esgscope/internal/exporter"
	"esgscope/internal/importer"
	"esgscope/internal/report"
	"esgscope/internal/store"
)

const acmeBody = `{"scores":{"Climate":80,"Labor":"n/a","overall_weight":1},"overall":74.2,"esg":{"E":40,"S":30,"G":30},"filename":"acme report.pdf"}`

type testEnv struct {
	router    *gin.Engine
	store     *store.Store
	exportDir string
}

func newTestEnv(t *testing.T, scoring http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(scoring)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "esgscope.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	renderer, err := report.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	client := importer.NewClient(importer.ClientOptions{BaseURL: srv.URL})
	view := report.NewView(client)
	view.SetJournal(NewSubmissionJournal(st))

	h := NewHandler(HandlerOptions{
		View:            view,
		Exporter:        exporter.NewExporter(view, renderer, exporter.DefaultOptions()),
		Store:           st,
		ExportDir:       dir,
		ScoringEndpoint: client.Endpoint(),
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return &testEnv{router: r, store: st, exportDir: dir}
}

func scoringReturns(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("document"); err != nil {
			http.Error(w, "missing document", http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("document", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmit_WithoutFileIsBadRequest(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/submit", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), report.ErrNoFile.Error()) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = env.do(t, multipartRequest(t, "/api/file", "", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("select without file status = %d", w.Code)
	}
}

func TestSelectThenSubmit_ReportAndDownloads(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))

	// 尚无报告时不可导出
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/report/image", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("export before report status = %d", w.Code)
	}

	w = env.do(t, multipartRequest(t, "/api/file", "acme report.pdf", []byte("%PDF-1.4")))
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d body=%s", w.Code, w.Body.String())
	}
	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/submit", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", w.Code, w.Body.String())
	}
	var snap struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil || snap.State != "success" {
		t.Fatalf("submit snapshot = %s (%v)", w.Body.String(), err)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	var rep ReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("unmarshal report: %v body=%s", err, w.Body.String())
	}
	if rep.OverallDisplay != "74.20" || rep.Rating.Band != "Very Good" || !rep.HasReport {
		t.Fatalf("unexpected summary: %+v", rep)
	}
	if len(rep.Categories) != 2 || rep.Categories[1].Display != "—" || rep.Categories[0].Display != "80.00" {
		t.Fatalf("unexpected categories: %+v", rep.Categories)
	}
	if len(rep.ESGLabels) != 3 || rep.ESGLabels[0].Display != "E: 40.0%" {
		t.Fatalf("unexpected esg labels: %+v", rep.ESGLabels)
	}

	cases := []struct {
		path        string
		contentType string
		filename    string
	}{
		{"/api/report/image", "image/png", "ESG-acme_report.pdf.png"},
		{"/api/report/document", "application/pdf", "ESG-acme_report.pdf.pdf"},
		{"/api/report/workbook", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "ESG-acme_report.pdf.xlsx"},
	}
	for _, tc := range cases {
		w := env.do(t, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d body=%s", tc.path, w.Code, w.Body.String())
		}
		if got := w.Header().Get("Content-Type"); got != tc.contentType {
			t.Fatalf("%s content-type = %q", tc.path, got)
		}
		if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, tc.filename) {
			t.Fatalf("%s content-disposition = %q", tc.path, got)
		}
		if w.Body.Len() == 0 {
			t.Fatalf("%s empty body", tc.path)
		}
	}
}

func TestUpload_TransportFailure(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusInternalServerError, "scoring engine timeout"))

	w := env.do(t, multipartRequest(t, "/api/upload", "acme.pdf", []byte("%PDF")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var snap struct {
		State string `json:"state"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.State != "failed" || snap.Error != "scoring engine timeout" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/report/document", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("export after failure status = %d", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	var list struct {
		Items []struct {
			Filename     string `json:"filename"`
			Status       string `json:"status"`
			ErrorMessage string `json:"errorMessage"`
			FileSize     int64  `json:"fileSize"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal submissions: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Status != "failed" || list.Items[0].ErrorMessage != "scoring engine timeout" || list.Items[0].FileSize != 4 {
		t.Fatalf("unexpected submissions: %+v", list.Items)
	}
}

func TestExportStream_OneTimeDownload(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/export/stream?format=pdf", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("stream before report status = %d", w.Code)
	}

	if w := env.do(t, multipartRequest(t, "/api/upload", "acme.pdf", []byte("%PDF"))); w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/export/stream?format=pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stream status = %d body=%s", w.Code, w.Body.String())
	}

	var (
		types       []string
		downloadURL string
	)
	sc := bufio.NewScanner(strings.NewReader(w.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		types = append(types, ev.Type)
		if ev.Type == "done" {
			downloadURL, _ = ev.Data["downloadUrl"].(string)
		}
	}
	if len(types) < 3 || types[0] != "start" || types[len(types)-1] != "done" {
		t.Fatalf("unexpected event sequence: %v", types)
	}
	if !strings.HasPrefix(downloadURL, "/api/export/download/") {
		t.Fatalf("download url = %q", downloadURL)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, downloadURL, nil))
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("download status = %d", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, downloadURL, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second download status = %d, want 404", w.Code)
	}

	entries, err := os.ReadDir(env.exportDir)
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "esgscope_export_") {
			t.Fatalf("export file not removed: %s", e.Name())
		}
	}
}

func TestExportStream_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/export/stream?format=docx", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))

	env.do(t, multipartRequest(t, "/api/file", "a.pdf", []byte("a")))
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var st StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.State != "fileSelected" || st.SelectedFile != "a.pdf" || st.HasReport || st.ResolvedAt != nil {
		t.Fatalf("unexpected status: %+v", st)
	}
	if !strings.HasSuffix(st.ScoringEndpoint, "/upload") {
		t.Fatalf("scoring endpoint = %q", st.ScoringEndpoint)
	}
}

func TestBuildContentDisposition(t *testing.T) {
	t.Parallel()

	if got, want := buildContentDisposition("ESG-acme.pdf.png"), `attachment; filename="ESG-acme.pdf.png"`; got != want {
		t.Fatalf("ascii:\n got: %s\nwant: %s", got, want)
	}
	got := buildContentDisposition("ESG-年报.pdf")
	want := "attachment; filename=\"ESG-__.pdf\"; filename*=UTF-8''ESG-%E5%B9%B4%E6%8A%A5.pdf"
	if got != want {
		t.Fatalf("utf-8:\n got: %s\nwant: %s", got, want)
	}
}

func TestExportDownloadStore_Expiry(t *testing.T) {
	t.Parallel()

	s := newExportDownloadStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	path := filepath.Join(t.TempDir(), "x.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	token := s.put(path, "x.pdf", "application/pdf", exportDownloadTTL)

	now = now.Add(exportDownloadTTL + time.Second)
	if _, ok := s.take(token); ok {
		t.Fatalf("expired token still valid")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired export file not removed: %v", err)
	}
}

func TestDownloadImage_InlinePreview(t *testing.T) {
	env := newTestEnv(t, scoringReturns(http.StatusOK, acmeBody))
	env.do(t, multipartRequest(t, "/api/upload", "acme.pdf", []byte("%PDF")))

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/report/image?inline=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `inline; filename="ESG-acme_report.pdf.png"` {
		t.Fatalf("content-disposition = %q", got)
	}
}
