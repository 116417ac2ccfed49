// Package sparql builds SPARQL 1.1 Update requests from typed triple
// patterns instead of string templates. Literal values are escaped on
// rendering, and IRIs and prefixed names are validated, so probe values
// can never break out of the query text.
package sparql

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes the RDF term forms an update can carry.
type Kind int

// Term kinds.
const (
	KindIRI Kind = iota + 1
	KindPName
	KindLiteral
	KindVar
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindPName:
		return "pname"
	case KindLiteral:
		return "literal"
	case KindVar:
		return "var"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Term is a single position of a triple pattern.
type Term struct {
	Kind  Kind
	Value string
}

// IRI returns an absolute IRI term, rendered as <value>.
func IRI(value string) Term { return Term{Kind: KindIRI, Value: value} }

// PName returns a prefixed-name term such as nie:title.
func PName(value string) Term { return Term{Kind: KindPName, Value: value} }

// Literal returns a plain string literal.
func Literal(value string) Term { return Term{Kind: KindLiteral, Value: value} }

// Var returns a query variable; the name is given without the leading '?'.
func Var(name string) Term { return Term{Kind: KindVar, Value: name} }

// Well-known prefixes. Prefixed names using them are expanded by Expand and
// declared by Update.String.
var Prefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"nie":  "http://www.semanticdesktop.org/ontologies/2007/01/19/nie#",
	"nfo":  "http://www.semanticdesktop.org/ontologies/2007/03/22/nfo#",
	"nao":  "http://www.semanticdesktop.org/ontologies/2007/08/15/nao#",
}

// Frequently used terms.
var (
	RDFType      = PName("rdf:type")
	RDFSResource = PName("rdfs:Resource")
	NIEURL       = PName("nie:url")
	NAOTag       = PName("nao:Tag")
	NAOHasTag    = PName("nao:hasTag")
	NAOPrefLabel = PName("nao:prefLabel")
)

var (
	pnamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*:[A-Za-z_][A-Za-z0-9_.-]*$`)
	varPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// iriForbidden are the characters SPARQL does not allow inside <...>.
const iriForbidden = "<>\"{}|^`\\ \t\r\n"

// Validate reports whether the term can be rendered safely.
func (t Term) Validate() error {
	switch t.Kind {
	case KindIRI:
		if t.Value == "" || strings.ContainsAny(t.Value, iriForbidden) {
			return fmt.Errorf("%w: iri %q", ErrInvalidTerm, t.Value)
		}
	case KindPName:
		if !pnamePattern.MatchString(t.Value) {
			return fmt.Errorf("%w: prefixed name %q", ErrInvalidTerm, t.Value)
		}
	case KindVar:
		if !varPattern.MatchString(t.Value) {
			return fmt.Errorf("%w: variable %q", ErrInvalidTerm, t.Value)
		}
	case KindLiteral:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidTerm, int(t.Kind))
	}
	return nil
}

// String renders the term in SPARQL syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindLiteral:
		return `"` + EscapeLiteral(t.Value) + `"`
	case KindVar:
		return "?" + t.Value
	default:
		return t.Value
	}
}

// Prefix returns the prefix of a prefixed name, or "" for other kinds.
func (t Term) Prefix() string {
	if t.Kind != KindPName {
		return ""
	}
	prefix, _, _ := strings.Cut(t.Value, ":")
	return prefix
}

// Expand resolves a prefixed name with a well-known prefix to an IRI term.
// Every other term is returned unchanged.
func (t Term) Expand() Term {
	if t.Kind != KindPName {
		return t
	}
	prefix, local, _ := strings.Cut(t.Value, ":")
	ns, ok := Prefixes[prefix]
	if !ok {
		return t
	}
	return IRI(ns + local)
}

// Compact is the inverse of Expand for IRIs under a well-known namespace.
func (t Term) Compact() Term {
	if t.Kind != KindIRI {
		return t
	}
	for prefix, ns := range Prefixes {
		if local, ok := strings.CutPrefix(t.Value, ns); ok && local != "" {
			if c := PName(prefix + ":" + local); c.Validate() == nil {
				return c
			}
		}
	}
	return t
}

// EscapeLiteral escapes a value for use inside a double-quoted literal.
func EscapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
