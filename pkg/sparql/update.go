package sparql

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Builder errors.
var (
	ErrInvalidTerm     = errors.New("invalid term")
	ErrEmptyUpdate     = errors.New("update has neither insert nor delete templates")
	ErrLiteralPosition = errors.New("literal not allowed in subject or predicate position")
)

// Triple is a (subject, predicate, object) pattern. Any position may be a
// variable; literals are only valid as objects.
type Triple struct {
	S, P, O Term
}

// T is shorthand for building a Triple.
func T(s, p, o Term) Triple { return Triple{S: s, P: p, O: o} }

// Validate checks every term and the literal-position rule.
func (t Triple) Validate() error {
	for _, term := range []Term{t.S, t.P, t.O} {
		if err := term.Validate(); err != nil {
			return err
		}
	}
	if t.S.Kind == KindLiteral || t.P.Kind == KindLiteral {
		return fmt.Errorf("%w: %s", ErrLiteralPosition, t)
	}
	return nil
}

// Vars returns the variable names used by the triple.
func (t Triple) Vars() []string {
	var vars []string
	for _, term := range []Term{t.S, t.P, t.O} {
		if term.Kind == KindVar {
			vars = append(vars, term.Value)
		}
	}
	return vars
}

func (t Triple) String() string {
	p := t.P.String()
	if t.P == RDFType {
		p = "a"
	}
	return t.S.String() + " " + p + " " + t.O.String()
}

// Update is a DELETE/INSERT ... WHERE request. Delete templates are applied
// before insert templates, both over the solutions of Where. An empty Where
// yields a single empty solution, so ground templates are applied once.
type Update struct {
	Delete []Triple
	Insert []Triple
	Where  []Triple
}

// Validate reports whether the update can be rendered and executed.
func (u Update) Validate() error {
	if len(u.Delete) == 0 && len(u.Insert) == 0 {
		return ErrEmptyUpdate
	}
	for _, group := range [][]Triple{u.Delete, u.Insert, u.Where} {
		for _, t := range group {
			if err := t.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// String renders the update, declaring every well-known prefix it uses.
// Callers should Validate first; String does not fail.
func (u Update) String() string {
	var b strings.Builder

	for _, prefix := range u.prefixes() {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", prefix, Prefixes[prefix])
	}
	if len(u.Delete) > 0 {
		b.WriteString("DELETE {\n")
		writeTriples(&b, u.Delete)
		b.WriteString("}\n")
	}
	if len(u.Insert) > 0 {
		b.WriteString("INSERT {\n")
		writeTriples(&b, u.Insert)
		b.WriteString("}\n")
	}
	b.WriteString("WHERE {\n")
	writeTriples(&b, u.Where)
	b.WriteString("}")
	return b.String()
}

func writeTriples(b *strings.Builder, triples []Triple) {
	for _, t := range triples {
		b.WriteString("  ")
		b.WriteString(t.String())
		b.WriteString(" .\n")
	}
}

func (u Update) prefixes() []string {
	seen := make(map[string]bool)
	for _, group := range [][]Triple{u.Delete, u.Insert, u.Where} {
		for _, t := range group {
			for i, term := range []Term{t.S, t.P, t.O} {
				if i == 1 && term == RDFType {
					continue
				}
				if p := term.Prefix(); p != "" {
					if _, ok := Prefixes[p]; ok {
						seen[p] = true
					}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
