package result

import "math"

// Item is a single search hit: document text, its metadata, and the
// index's native cosine distance rounded to 4 decimal places. The
// distance is surfaced as-is — lower means more similar — with no
// inversion or normalization beyond the rounding.
type Item struct {
	id       string
	document string
	metadata map[string]string
	score    float64
}

// New creates a search result item, rounding the distance.
func New(id, document string, metadata map[string]string, distance float64) Item {
	return Item{
		id:       id,
		document: document,
		metadata: metadata,
		score:    Round(distance),
	}
}

// ID returns the document identifier.
func (i *Item) ID() string { return i.id }

// Document returns the document text.
func (i *Item) Document() string { return i.document }

// Metadata returns the document metadata.
func (i *Item) Metadata() map[string]string { return i.metadata }

// Score returns the rounded cosine distance.
func (i *Item) Score() float64 { return i.score }

// Round rounds a distance to 4 decimal places.
func Round(d float64) float64 {
	return math.Round(d*1e4) / 1e4
}
