package domain

import "fmt"

// Document is an indexed permit record: text plus flat string metadata
// and the embedding vector the index searches over.
type Document struct {
	id       string
	text     string
	metadata map[string]string
	vector   []float32
}

// NewDocument validates and creates a Document.
func NewDocument(id, text string, metadata map[string]string, vector []float32) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("%w: id is required", ErrDocumentInvalid)
	}
	if text == "" {
		return Document{}, fmt.Errorf("%w: text is required", ErrDocumentInvalid)
	}
	if len(vector) == 0 {
		return Document{}, fmt.Errorf("%w: vector is required", ErrDocumentInvalid)
	}
	return Document{id: id, text: text, metadata: metadata, vector: vector}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the document text.
func (d *Document) Text() string { return d.text }

// Metadata returns the document metadata fields.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }
