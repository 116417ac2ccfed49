package types

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
)

// StoreClient executes update requests against the semantic store.
// A nil error only means the store accepted the update; it says nothing
// about when the change reaches the file on disk.
type StoreClient interface {
	Update(ctx context.Context, u sparql.Update) error
}

// Extractor reads the metadata currently embedded in a file.
type Extractor interface {
	GetMetadata(ctx context.Context, fileURI, mimeType string) (Metadata, error)
}

// Metadata maps extracted keys to their values, in extraction order.
type Metadata map[string][]string

// First returns the first value under key.
func (m Metadata) First(key string) (string, bool) {
	values := m[key]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Contains reports whether value is among the values under key.
func (m Metadata) Contains(key, value string) bool {
	return slices.Contains(m[key], value)
}
