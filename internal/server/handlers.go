package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/vecdb"
	"github.com/fabfab/vectordb/internal/vecindex"
)

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs := s.db.GetLibraries()
	out := make([]libraryDTO, len(libs))
	for i, lib := range libs {
		out[i] = toLibraryDTO(lib)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	lib, err := s.db.GetLibrary(name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLibraryDTO(lib))
}

func (s *Server) handleAddLibrary(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string         `json:"name"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleAddLibrary", "", "decode request: %w", err))
		return
	}

	kind := vecindex.Kind(r.URL.Query().Get("index_type"))
	if kind == "" {
		kind = vecindex.KindFlatL2
	}
	idx, err := vecindex.New(kind, nil)
	if err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleAddLibrary", string(kind), "%w", err))
		return
	}

	lib := vecdb.NewLibrary(payload.Name, payload.Metadata, s.embedder)
	lib.AddVectorSearchIndex(idx)
	if err := s.db.AddLibrary(lib); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "library created")
}

func (s *Server) handleUpdateLibraryName(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LibraryName string         `json:"library_name"`
		NewName     string         `json:"new_name"`
		Metadata    map[string]any `json:"metadata"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleUpdateLibraryName", "", "decode request: %w", err))
		return
	}
	if err := s.db.UpdateLibraryName(payload.LibraryName, payload.NewName); err != nil {
		writeAppError(w, err)
		return
	}
	if payload.Metadata != nil {
		if lib, err := s.db.GetLibrary(payload.NewName); err == nil {
			lib.Metadata = payload.Metadata
		}
	}
	writeMessage(w, http.StatusOK, "library renamed")
}

func (s *Server) handleRemoveLibrary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.db.RemoveLibrary(name); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "library removed")
}

func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("library_name")
	lib, err := s.db.GetLibrary(name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := lib.BuildIndex(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "index built")
}

func (s *Server) handleQueryLibrary(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LibraryName string `json:"library_name"`
		Query       string `json:"query"`
		K           int    `json:"k"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleQueryLibrary", "", "decode request: %w", err))
		return
	}
	lib, err := s.db.GetLibrary(payload.LibraryName)
	if err != nil {
		writeAppError(w, err)
		return
	}
	k := payload.K
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}
	chunks, err := lib.Search(r.Context(), payload.Query, k)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChunkDTOs(chunks))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	docs := lib.GetDocuments()
	out := make([]documentDTO, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentDTO(doc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	doc, err := lib.GetDocument("", docID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string         `json:"name"`
		LibraryName string         `json:"library_name"`
		Metadata    map[string]any `json:"metadata"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleAddDocument", "", "decode request: %w", err))
		return
	}
	lib, err := s.db.GetLibrary(payload.LibraryName)
	if err != nil {
		writeAppError(w, err)
		return
	}
	doc := vecdb.NewDocument(payload.Name, payload.Metadata)
	if err := lib.AddDocument(r.Context(), doc); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := lib.RemoveDocument(docID); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "document removed")
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	docID := r.URL.Query().Get("document_id")
	if docID == "" {
		writeJSON(w, http.StatusOK, toChunkDTOs(lib.GetChunks()))
		return
	}

	doc, err := lib.GetDocument("", docID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChunkDTOs(doc.GetChunks()))
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	chunk, err := lib.GetChunk(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChunkDTO(chunk))
}

func (s *Server) handleAddChunks(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LibraryName string `json:"library_name"`
		Chunks      []struct {
			Text     string         `json:"text"`
			Metadata map[string]any `json:"metadata"`
		} `json:"chunks"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleAddChunks", "", "decode request: %w", err))
		return
	}
	lib, err := s.db.GetLibrary(payload.LibraryName)
	if err != nil {
		writeAppError(w, err)
		return
	}

	chunks := make([]*vecdb.Chunk, len(payload.Chunks))
	for i, c := range payload.Chunks {
		chunks[i] = vecdb.NewChunk(c.Text, c.Metadata)
	}
	if err := lib.AddChunks(r.Context(), chunks); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "chunks added")
}

func (s *Server) handleUpdateChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeAppError(w, apperr.InvalidArgumentf("handleUpdateChunk", "", "decode request: %w", err))
		return
	}
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if _, err := lib.UpdateChunk(r.Context(), id, payload.Text); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "chunk updated")
}

func (s *Server) handleRemoveChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lib, err := s.db.GetLibrary(r.URL.Query().Get("library_name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := lib.RemoveChunk(id); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "chunk removed")
}
