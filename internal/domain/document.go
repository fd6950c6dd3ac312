package domain

import (
	"path"
	"strings"
)

// MetadataSource is the metadata key every persisted chunk carries.
const MetadataSource = "source"

// Document is the text of one resume, tagged with the file it came from.
type Document struct {
	Text   string
	Source string
}

// NewDocument creates a Document tagged with the base name of filename.
func NewDocument(text, filename string) Document {
	return Document{Text: text, Source: SourceName(filename)}
}

// Metadata returns the metadata every chunk derived from d inherits.
func (d Document) Metadata() map[string]string {
	return map[string]string{MetadataSource: d.Source}
}

// Chunk is the persisted, embeddable unit of resume text.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// NewChunk creates a chunk with its own copy of metadata.
func NewChunk(text string, metadata map[string]string) Chunk {
	return Chunk{Text: text, Metadata: copyMetadata(metadata)}
}

// Clone returns a copy of c that shares no metadata map with it.
func (c Chunk) Clone() Chunk {
	c.Metadata = copyMetadata(c.Metadata)
	return c
}

// Source returns the resume filename the chunk belongs to.
func (c Chunk) Source() string {
	return c.Metadata[MetadataSource]
}

// ScoredChunk is a chunk returned by a similarity search.
type ScoredChunk struct {
	Chunk
	Distance float64
}

// EmbeddedChunk is a chunk together with its embedding, ready for an index.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// Filter restricts store operations to chunks whose metadata matches every pair exactly.
type Filter map[string]string

// SourceFilter returns the filter selecting the chunks of one resume.
func SourceFilter(filename string) Filter {
	return Filter{MetadataSource: SourceName(filename)}
}

// Matches reports whether metadata satisfies the filter. An empty filter matches everything.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		got, ok := metadata[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// SourceName reduces a path or filename to the identifier used in the "source" tag.
func SourceName(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
