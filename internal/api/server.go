// Package api exposes the capture service over HTTP and a websocket feed.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shot"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// MaxUploadBytes caps the body of PUT /api/artifacts/{name}.
const MaxUploadBytes = 64 << 20

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	svc      *shot.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(svc *shot.Service) *Server {
	s := &Server{
		router: mux.NewRouter(),
		svc:    svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool; any origin may connect
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleSaveSettings).Methods("PUT")
	api.HandleFunc("/settings/{key}", s.handleSetSetting).Methods("PUT")

	// History
	api.HandleFunc("/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/history", s.handleAddHistory).Methods("POST")
	api.HandleFunc("/history", s.handleClearHistory).Methods("DELETE")
	api.HandleFunc("/history/stream", s.handleHistoryStream)

	// Capture
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/actions/{action}", s.handleDispatch).Methods("POST")
	api.HandleFunc("/displays", s.handleListDisplays).Methods("GET")
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")
	api.HandleFunc("/source", s.handleSource).Methods("GET")

	// Artifacts
	api.HandleFunc("/artifacts", s.handleListArtifacts).Methods("GET")
	api.HandleFunc("/artifacts/{name}", s.handleLoadArtifact).Methods("GET")
	api.HandleFunc("/artifacts/{name}", s.handleSaveArtifact).Methods("PUT")
	api.HandleFunc("/artifacts/{name}/resize", s.handleResizeArtifact).Methods("POST")
	api.HandleFunc("/artifacts/{name}/convert", s.handleConvertArtifact).Methods("POST")
	api.HandleFunc("/artifacts/{name}/copy", s.handleCopyArtifact).Methods("POST")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routes wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on addr until the listener fails.
func (s *Server) Start(addr string) error {
	logger.WithComponent("api").Info().
		Str("addr", addr).
		Msg("Starting API server")

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch shoterr.KindOf(err) {
	case shoterr.KindNotFound:
		return http.StatusNotFound
	case shoterr.KindInvalid, shoterr.KindRegionOutOfBounds, shoterr.KindEmptyRegion, shoterr.KindUnsupportedFormat:
		return http.StatusBadRequest
	case shoterr.KindSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Stage string `json:"stage,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	ev := logger.WithComponent("api").Warn()
	if status >= 500 {
		ev = logger.WithComponent("api").Error()
	}
	ev.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, errorBody{
		Error: err.Error(),
		Kind:  shoterr.KindOf(err).String(),
		Stage: string(shoterr.StageOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shoterr.New(shoterr.KindInvalid, "", "decode request", err)
	}
	return nil
}

// HTTP Handlers

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	load := s.svc.LoadSettings
	// ?strict=1 reports a corrupt file instead of falling back to defaults
	if r.URL.Query().Get("strict") != "" {
		load = s.svc.LoadSettingsStrict
	}
	settings, err := load()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SaveSettings(settings); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	settings, err := s.svc.UpdateSettings(func(st *config.Settings) error {
		return st.Set(key, req.Value)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.GetHistory()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	var entry history.Entry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.AddHistory(entry); err != nil {
		if errors.Is(err, history.ErrDuplicateID) {
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: shoterr.KindOf(err).String()})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearHistory(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleHistoryStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Subscribe to history changes
	updates := s.svc.Subscribe()
	defer s.svc.Unsubscribe(updates)

	// Detect the client going away; reads are otherwise unused.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

// captureBody is CaptureRequest with the format as a name.
type captureBody struct {
	shot.CaptureRequest
	Format string `json:"format,omitempty"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body captureBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req := body.CaptureRequest
	if req.Mode == "" {
		req.Mode = shot.ModeFullScreen
	}
	mode, err := shot.ParseMode(string(req.Mode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.Mode = mode
	if body.Format != "" {
		if req.Format, err = codec.ParseFormat(body.Format); err != nil {
			writeError(w, r, err)
			return
		}
	}

	res, err := s.svc.Capture(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Dispatch(mux.Vars(r)["action"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDisplays(w http.ResponseWriter, r *http.Request) {
	displays, err := s.svc.ListDisplays()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, displays)
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.svc.ListWindows()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Source()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleListArtifacts lists the save directory only. Other directories are
// reachable from the CLI, not over HTTP.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("dir") {
		writeError(w, r, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageStorage, "list artifacts",
			"only the save directory can be listed"))
		return
	}
	names, err := s.svc.ListArtifacts("")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleLoadArtifact(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := s.svc.LoadArtifact(name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	if f, err := codec.FormatFromPath(name); err == nil {
		contentType = f.MIMEType()
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleSaveArtifact(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadBytes+1))
	if err != nil {
		writeError(w, r, shoterr.New(shoterr.KindInvalid, "", "read body", err))
		return
	}
	if len(data) > MaxUploadBytes {
		writeError(w, r, shoterr.Errorf(shoterr.KindInvalid, "", "read body", "body exceeds %d bytes", MaxUploadBytes))
		return
	}

	path, err := s.svc.SaveImageBytes(mux.Vars(r)["name"], data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path, "name": filepath.Base(path)})
}

func (s *Server) handleResizeArtifact(w http.ResponseWriter, r *http.Request) {
	var req shot.Size
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name, err := s.svc.ResizeArtifact(mux.Vars(r)["name"], req.Width, req.Height)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleConvertArtifact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name, err := s.svc.ConvertArtifactFormat(mux.Vars(r)["name"], req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleCopyArtifact(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CopyToClipboard(mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":  "healthy",
		"version": config.Version,
	}
	if info, err := s.svc.Source(); err == nil {
		status["backend"] = info.Name
	} else {
		status["backend"] = "unavailable"
	}
	writeJSON(w, http.StatusOK, status)
}
