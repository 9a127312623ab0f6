package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vmoraes/debtflow/internal/config"
	"github.com/vmoraes/debtflow/internal/core/ports"
	"github.com/vmoraes/debtflow/internal/infrastructure/spreadsheet"
	"github.com/vmoraes/debtflow/internal/observability/metrics"
)

type Router struct {
	cfg      config.Config
	submitUC ports.ImportSubmitter
	imports  ports.ImportRepository
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	submitUC ports.ImportSubmitter,
	imports ports.ImportRepository,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		submitUC: submitUC,
		imports:  imports,
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/imports", rt.submitImport)
	mux.HandleFunc("/v1/imports/file", rt.submitImportFile)
	mux.HandleFunc("/v1/imports/", rt.getImportByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitRequest struct {
	UserID   string           `json:"userId"`
	FileName string           `json:"fileName"`
	FileType string           `json:"fileType"`
	Data     []map[string]any `json:"data"`
}

type submitResponse struct {
	Success  bool   `json:"success"`
	ImportID string `json:"importId"`
	Message  string `json:"message"`
}

func (rt *Router) submitImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// UseNumber keeps numeric tax ids and phone numbers intact; a float64
	// round-trip would mangle an 11-digit CPF.
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req submitRequest
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	imp, err := rt.submitUC.Submit(r.Context(), req.UserID, req.FileName, req.FileType, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		Success:  true,
		ImportID: imp.ID,
		Message:  fmt.Sprintf("Importação iniciada. %d registros na fila de processamento.", imp.TotalRecords),
	})
}

func (rt *Router) submitImportFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'user_id' is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	rows, err := spreadsheet.ReadRows(fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	imp, err := rt.submitUC.Submit(r.Context(), userID, fileHeader.Filename, fileType, rows)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		Success:  true,
		ImportID: imp.ID,
		Message:  fmt.Sprintf("Importação iniciada. %d registros na fila de processamento.", imp.TotalRecords),
	})
}

func (rt *Router) getImportByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/imports/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "import id is required"})
		return
	}

	imp, err := rt.imports.GetImport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
