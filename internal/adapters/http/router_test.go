package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vmoraes/debtflow/internal/config"
	"github.com/vmoraes/debtflow/internal/core/domain"
	"github.com/vmoraes/debtflow/internal/core/ports"
)

type fakeSubmitter struct {
	imp       *domain.Import
	err       error
	lastRows  []map[string]any
	lastUser  string
	lastName  string
	lastType  string
	callCount int
}

func (f *fakeSubmitter) Submit(_ context.Context, userID, fileName, fileType string, rows []map[string]any) (*domain.Import, error) {
	f.callCount++
	f.lastUser = userID
	f.lastName = fileName
	f.lastType = fileType
	f.lastRows = rows
	if f.err != nil {
		return nil, f.err
	}
	return f.imp, nil
}

type fakeImportReader struct {
	ports.ImportRepository

	imp *domain.Import
	err error
}

func (f *fakeImportReader) GetImport(context.Context, string) (*domain.Import, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.imp, nil
}

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes: 1 << 20,
	}
}

func newTestHandler(submitter *fakeSubmitter, imports *fakeImportReader, cfg config.Config) http.Handler {
	return NewRouter(cfg, submitter, imports, nil).Handler()
}

func TestSubmitImportAccepted(t *testing.T) {
	submitter := &fakeSubmitter{imp: &domain.Import{ID: "import-1", TotalRecords: 2}}
	handler := newTestHandler(submitter, &fakeImportReader{}, testConfig())

	body := `{"userId":"user-1","fileName":"contacts.csv","fileType":"csv","data":[{"cpf":12345678901},{"cpf":"222"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success  bool   `json:"success"`
		ImportID string `json:"importId"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ImportID != "import-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Message, "2 registros") {
		t.Fatalf("expected record count in message, got %q", resp.Message)
	}

	if submitter.lastUser != "user-1" {
		t.Fatalf("unexpected user id: %q", submitter.lastUser)
	}
	cpf, ok := submitter.lastRows[0]["cpf"].(json.Number)
	if !ok || cpf.String() != "12345678901" {
		t.Fatalf("expected numeric cpf preserved as json.Number, got %#v", submitter.lastRows[0]["cpf"])
	}
}

func TestSubmitImportRequiresUserID(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := newTestHandler(submitter, &fakeImportReader{}, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(`{"data":[{"cpf":"1"}]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if submitter.callCount != 0 {
		t.Fatal("expected no submission without a user id")
	}
}

func TestSubmitImportMapsInvalidInputTo400(t *testing.T) {
	submitter := &fakeSubmitter{
		err: domain.WrapError(domain.ErrInvalidInput, "submit import", errors.New("data array is empty")),
	}
	handler := newTestHandler(submitter, &fakeImportReader{}, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(`{"userId":"user-1","data":[]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitImportMapsUnknownUserTo404(t *testing.T) {
	submitter := &fakeSubmitter{
		err: domain.WrapError(domain.ErrNotFound, "resolve company", errors.New("user ghost")),
	}
	handler := newTestHandler(submitter, &fakeImportReader{}, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(`{"userId":"ghost","data":[{"cpf":"1"}]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetImportByID(t *testing.T) {
	imports := &fakeImportReader{imp: &domain.Import{ID: "import-1", Status: domain.ImportStatusCompleted}}
	handler := newTestHandler(&fakeSubmitter{}, imports, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/import-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var imp domain.Import
	if err := json.Unmarshal(rec.Body.Bytes(), &imp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if imp.ID != "import-1" || imp.Status != domain.ImportStatusCompleted {
		t.Fatalf("unexpected import: %+v", imp)
	}
}

func TestGetImportByIDNotFound(t *testing.T) {
	imports := &fakeImportReader{
		err: domain.WrapError(domain.ErrNotFound, "get import", errors.New("import missing")),
	}
	handler := newTestHandler(&fakeSubmitter{}, imports, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitImportFileAcceptsCSVUpload(t *testing.T) {
	submitter := &fakeSubmitter{imp: &domain.Import{ID: "import-1", TotalRecords: 1}}
	handler := newTestHandler(submitter, &fakeImportReader{}, testConfig())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("user_id", "user-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "contacts.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("cpf,nome\n11111111111,Maria Silva\n")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/imports/file", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if submitter.lastType != "csv" {
		t.Fatalf("expected csv file type, got %q", submitter.lastType)
	}
	if len(submitter.lastRows) != 1 || submitter.lastRows[0]["cpf"] != "11111111111" {
		t.Fatalf("unexpected parsed rows: %v", submitter.lastRows)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	handler := newTestHandler(&fakeSubmitter{}, &fakeImportReader{imp: &domain.Import{ID: "import-1"}}, cfg)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestSubmitImportRejectsNonPOST(t *testing.T) {
	handler := newTestHandler(&fakeSubmitter{}, &fakeImportReader{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/imports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
