package server

import "github.com/fabfab/vectordb/internal/vecdb"

type libraryDTO struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

type documentDTO struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

type chunkDTO struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func toLibraryDTO(lib *vecdb.Library) libraryDTO {
	return libraryDTO{Name: lib.Name, Metadata: lib.Metadata}
}

func toDocumentDTO(doc *vecdb.Document) documentDTO {
	return documentDTO{ID: doc.ID, Name: doc.Name, Metadata: doc.Metadata}
}

func toChunkDTO(c *vecdb.Chunk) chunkDTO {
	return chunkDTO{ID: c.ID, Text: c.Text, Metadata: c.Metadata}
}

func toChunkDTOs(chunks []*vecdb.Chunk) []chunkDTO {
	out := make([]chunkDTO, len(chunks))
	for i, c := range chunks {
		out[i] = toChunkDTO(c)
	}
	return out
}
