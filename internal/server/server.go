// Package server exposes the in-memory vector database over HTTP: a thin
// adapter translating query strings and JSON bodies into calls against
// vecdb.Database, and vecdb/apperr errors back into status codes.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/config"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/vecdb"
)

// Server wires HTTP handlers to the underlying database and embedding
// provider.
type Server struct {
	cfg      config.Config
	router   http.Handler
	db       *vecdb.Database
	embedder embeddings.Embedder
}

// New constructs a Server with the provided dependencies.
func New(cfg config.Config, db *vecdb.Database, embedder embeddings.Embedder) *Server {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{
		cfg:      cfg,
		router:   mux,
		db:       db,
		embedder: embedder,
	}

	mux.Get("/library", s.handleListLibraries)
	mux.Get("/library/{name}", s.handleGetLibrary)
	mux.Post("/library", s.handleAddLibrary)
	mux.Patch("/library", s.handleUpdateLibraryName)
	mux.Delete("/library/{name}", s.handleRemoveLibrary)
	mux.Patch("/library/query", s.handleBuildIndex)
	mux.Post("/library/query", s.handleQueryLibrary)

	mux.Get("/document", s.handleListDocuments)
	mux.Get("/document/{doc_id}", s.handleGetDocument)
	mux.Post("/document", s.handleAddDocument)
	mux.Delete("/document/{doc_id}", s.handleRemoveDocument)

	mux.Get("/chunk", s.handleListChunks)
	mux.Get("/chunk/{id}", s.handleGetChunk)
	mux.Post("/chunk", s.handleAddChunks)
	mux.Patch("/chunk/{id}", s.handleUpdateChunk)
	mux.Delete("/chunk/{id}", s.handleRemoveChunk)

	return s
}

// ServeHTTP exposes the router so Server satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Printf("failed to write JSON response: %v\n", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeAppError maps an apperr.Kind to its HTTP status and writes the
// response body.
func writeAppError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrStatus(err), map[string]any{"error": err.Error()})
}

// apperrStatus maps the four apperr.Kind values to the four HTTP statuses
// spec.md §7 assigns them. Centralized here rather than repeated per
// handler, the same way the teacher's writeError already centralizes
// status-to-body formatting.
func apperrStatus(err error) int {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Duplicate:
		return http.StatusConflict
	case apperr.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
