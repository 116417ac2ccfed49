package types

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
)

// Predicates with writeback support.
const (
	PropTitle       = "nie:title"
	PropDescription = "nie:description"
	PropKeyword     = "nie:keyword"
)

// KeyTagLabel is the composite extraction key for the labels of every
// tag related to the file. Keywords surface under it too.
const KeyTagLabel = "nao:hasTag:prefLabel"

// The tag resource used by relation scenarios.
const (
	TagIRI   = "test://writeback-hasTag-test/1"
	TagLabel = "testTag"
)

// probeSuffix is appended to the stripped property name.
const probeSuffix = "test"

// Property is a scalar predicate under test. ExpectedKey names the key the
// extractor reports it under when that differs from the predicate.
type Property struct {
	Name        string
	ExpectedKey string
}

// Key returns the extraction key to assert on.
func (p Property) Key() string {
	if p.ExpectedKey != "" {
		return p.ExpectedKey
	}
	return p.Name
}

// Predicate returns the property as a query term.
func (p Property) Predicate() sparql.Term {
	return sparql.PName(p.Name)
}

// Validate checks that the property name is a usable prefixed name.
func (p Property) Validate() error {
	if err := p.Predicate().Validate(); err != nil {
		return fmt.Errorf("property %q: %w", p.Name, err)
	}
	return nil
}

// ProbeValue derives the value written for a property: the name with its
// prefix separators removed, plus a fixed suffix. "nie:title" yields
// "nietitletest". The result is stable across runs.
func ProbeValue(name string) string {
	return strings.ReplaceAll(name, ":", "") + probeSuffix
}
