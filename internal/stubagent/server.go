// Package stubagent is a local stand-in for the file editing agent service.
// It speaks the same HTTP protocol but interprets only scripted
// "delete <path>" and "create <path>" instructions.
package stubagent

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Delay is added before every response, to make busy states visible.
	Delay time.Duration
}

// Server holds sessions in memory.
type Server struct {
	logger *slog.Logger
	delay  time.Duration

	mu       sync.Mutex
	sessions map[string]*workspace
}

// New creates an empty server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		logger:   logger,
		delay:    opts.Delay,
		sessions: make(map[string]*workspace),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))
	if s.delay > 0 {
		r.Use(delay(s.delay))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
	})
	r.Post("/upload", s.upload)
	r.Get("/files/{id}", s.files)
	r.Get("/download/{id}", s.download)
	r.Post("/prompt/{id}", s.prompt)
	return r
}

// Sessions returns the ids of the live sessions.
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Expire forgets a session, as the real service does after a restart.
func (s *Server) Expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

type fileNode struct {
	Path string `json:"path"`
}

func fileTree(paths []string) []fileNode {
	nodes := make([]fileNode, len(paths))
	for i, p := range paths {
		nodes[i] = fileNode{Path: p}
	}
	return nodes
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, "file", "field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", err))
		return
	}
	ws, err := extractArchive(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Uploaded file is not a valid ZIP file.")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = ws
	tree := ws.tree()
	s.mu.Unlock()

	s.logger.Info("session created", "session", id, "files", len(tree))
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"file_tree":  fileTree(tree),
	})
}

func (s *Server) files(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	ws, ok := s.sessions[id]
	var tree []string
	if ok {
		tree = ws.tree()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_tree": fileTree(tree)})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	ws, ok := s.sessions[id]
	var data []byte
	var err error
	if ok {
		data, err = ws.archive()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="project_%s.zip"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) prompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Prompt *string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == nil {
		writeValidationError(w, "prompt", "field required")
		return
	}

	s.mu.Lock()
	ws, ok := s.sessions[id]
	var message string
	var tree []string
	if ok {
		message = ws.apply(*req.Prompt)
		tree = ws.tree()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	s.logger.Info("instruction applied", "session", id, "files", len(tree))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   message,
		"file_tree": fileTree(tree),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidationError mirrors the list-shaped detail of request validation
// failures.
func writeValidationError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error.missing",
		}},
	})
}
