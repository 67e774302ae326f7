package document

import (
	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain"
)

// buildHashFields converts a domain Document into the flat field map
// every backend stores: reserved "__" fields plus metadata.
func buildHashFields(doc *domain.Document) map[string]string {
	m := make(map[string]string, 2+len(doc.Metadata()))
	m["__content"] = doc.Text()
	m["__vector"] = string(db.EncodeVector(doc.Vector()))
	for k, v := range doc.Metadata() {
		m[k] = v
	}
	return m
}
