package server

import (
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/restdoc/internal/config"
	"github.com/yourorg/restdoc/internal/generator"
	"github.com/yourorg/restdoc/internal/manifest"
	"github.com/yourorg/restdoc/internal/store"
	"github.com/yourorg/restdoc/pkg/types"
)

const maxManifestBytes = 4 << 20

//go:embed ui.html
var uiHTML []byte

// Server wraps the preview UI and API handlers.
type Server struct {
	cfg    *config.Config
	store  store.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// New constructs a new Server with routes registered.
func New(cfg *config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{
		cfg:    cfg,
		store:  st,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("preview server listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) registerRoutes() {
	// Static file server for rendered docs.
	s.mux.Handle("/docs/", http.StripPrefix("/docs/", http.FileServer(http.Dir(s.cfg.Output.Dir))))

	// UI routes.
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/run/", s.handleRunPage)

	// API routes.
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/runs/", s.handleRunRoutes)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.renderUI(w)
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// The page reads the run id from its own path.
	id, tail, ok := splitPath(r.URL.Path, "/run/")
	if !ok || id == "" || tail != "" {
		http.NotFound(w, r)
		return
	}
	s.renderUI(w)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.store.ListRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := splitPath(r.URL.Path, "/api/runs/")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	switch tail {
	case "":
		s.handleRunDetail(w, r, id)
	case "doc":
		s.handleRunDoc(w, r, id)
	case "openapi":
		s.handleRunOpenAPI(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if err := s.store.DeleteRun(id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	ops, err := s.store.GetOperations(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := struct {
		Run        *types.Run              `json:"run"`
		Operations []types.OperationRecord `json:"operations"`
	}{
		Run:        run,
		Operations: ops,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loadDoc(w http.ResponseWriter, r *http.Request, id string) (*types.Documentation, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	ops, err := s.store.GetOperations(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if len(ops) == 0 {
		http.Error(w, "doc not found", http.StatusNotFound)
		return nil, false
	}
	return generator.Rebuild(run, ops), true
}

func (s *Server) handleRunDoc(w http.ResponseWriter, r *http.Request, id string) {
	doc, ok := s.loadDoc(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRunOpenAPI(w http.ResponseWriter, r *http.Request, id string) {
	doc, ok := s.loadDoc(w, r, id)
	if !ok {
		return
	}
	data, err := generator.MarshalOpenAPIYAML(generator.BuildOpenAPI(doc))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(data)
}

// handleGenerate documents the manifest posted as the request body.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxManifestBytes))
	if err != nil {
		http.Error(w, "read manifest: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		http.Error(w, "manifest required", http.StatusBadRequest)
		return
	}
	m, err := manifest.Parse(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("source"))
	if name == "" {
		name = "upload"
	}
	src, err := generator.ManifestSource(name, m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := generator.NewPipeline(s.cfg, s.store, s.logger).Run(r.Context(), src, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, generator.ErrInvalidManifest) || errors.Is(err, generator.ErrEmptyRequestBody) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("generate failed", "source", name, "err", err)
		http.Error(w, "generate failed: "+err.Error(), status)
		return
	}
	resp := struct {
		Run   *types.Run           `json:"run"`
		Files []string             `json:"files"`
		Doc   *types.Documentation `json:"doc"`
	}{
		Run:   out.Run,
		Files: out.Files,
		Doc:   out.Doc,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) renderUI(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(uiHTML)
}

func splitPath(fullPath, prefix string) (string, string, bool) {
	if !strings.HasPrefix(fullPath, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(fullPath, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	return id, tail, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := generator.MarshalJSON(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
