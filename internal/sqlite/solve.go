package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
)

const insertSQL = `INSERT OR IGNORE INTO triples (subject, subject_kind, predicate, predicate_kind, object, object_kind) VALUES (?, ?, ?, ?, ?, ?)`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Binding maps variable names to the terms they are bound to.
type Binding map[string]sparql.Term

func (b Binding) clone() Binding {
	out := make(Binding, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// resolve substitutes a bound variable, and expands prefixed names.
func (b Binding) resolve(t sparql.Term) (sparql.Term, bool) {
	if t.Kind == sparql.KindVar {
		v, ok := b[t.Value]
		return v, ok
	}
	return t.Expand(), true
}

// ground substitutes every variable of t. ok is false when one is unbound.
func (b Binding) ground(t sparql.Triple) (sparql.Triple, bool) {
	s, ok1 := b.resolve(t.S)
	p, ok2 := b.resolve(t.P)
	o, ok3 := b.resolve(t.O)
	return sparql.T(s, p, o), ok1 && ok2 && ok3
}

// solve evaluates a basic graph pattern by joining one pattern at a time.
// An empty pattern has exactly one, empty, solution.
func solve(ctx context.Context, q querier, where []sparql.Triple) ([]Binding, error) {
	solutions := []Binding{{}}
	for _, pattern := range where {
		var next []Binding
		for _, b := range solutions {
			matches, err := match(ctx, q, b, pattern)
			if err != nil {
				return nil, err
			}
			next = append(next, matches...)
		}
		solutions = next
		if len(solutions) == 0 {
			break
		}
	}
	return solutions, nil
}

// match returns the extensions of b that satisfy pattern.
func match(ctx context.Context, q querier, b Binding, pattern sparql.Triple) ([]Binding, error) {
	var (
		conds []string
		args  []any
	)
	positions := []struct {
		term      sparql.Term
		col, kind string
	}{
		{pattern.S, "subject", "subject_kind"},
		{pattern.P, "predicate", "predicate_kind"},
		{pattern.O, "object", "object_kind"},
	}
	for _, pos := range positions {
		t, bound := b.resolve(pos.term)
		if !bound {
			continue
		}
		conds = append(conds, pos.col+" = ?", pos.kind+" = ?")
		args = append(args, t.Value, int(t.Kind))
	}

	query := `SELECT subject, subject_kind, predicate, predicate_kind, object, object_kind FROM triples`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern, err)
	}
	defer rows.Close()

	var out []Binding
	for rows.Next() {
		var (
			sv, pv, ov  string
			sk, pk, obk int
		)
		if err := rows.Scan(&sv, &sk, &pv, &pk, &ov, &obk); err != nil {
			return nil, fmt.Errorf("scanning triple: %w", err)
		}
		ext := b.clone()
		row := []sparql.Term{
			{Kind: sparql.Kind(sk), Value: sv},
			{Kind: sparql.Kind(pk), Value: pv},
			{Kind: sparql.Kind(obk), Value: ov},
		}
		consistent := true
		for i, pos := range positions {
			if pos.term.Kind != sparql.KindVar {
				continue
			}
			if prev, seen := ext[pos.term.Value]; seen && prev != row[i] {
				consistent = false
				break
			}
			ext[pos.term.Value] = row[i]
		}
		if consistent {
			out = append(out, ext)
		}
	}
	return out, rows.Err()
}

func insertTriple(ctx context.Context, q querier, t sparql.Triple) error {
	if _, err := q.ExecContext(ctx, insertSQL,
		t.S.Value, int(t.S.Kind), t.P.Value, int(t.P.Kind), t.O.Value, int(t.O.Kind)); err != nil {
		return fmt.Errorf("inserting %s: %w", t, err)
	}
	return nil
}

// deleteTriple removes t. Deleting a resource's rdfs:Resource type removes
// the resource.
func deleteTriple(ctx context.Context, q querier, t sparql.Triple) error {
	if isResourceType(t) {
		if _, err := q.ExecContext(ctx, `DELETE FROM triples WHERE subject = ? AND subject_kind = ?`,
			t.S.Value, int(t.S.Kind)); err != nil {
			return fmt.Errorf("deleting resource %s: %w", t.S, err)
		}
		return nil
	}
	if _, err := q.ExecContext(ctx,
		`DELETE FROM triples WHERE subject = ? AND subject_kind = ? AND predicate = ? AND predicate_kind = ? AND object = ? AND object_kind = ?`,
		t.S.Value, int(t.S.Kind), t.P.Value, int(t.P.Kind), t.O.Value, int(t.O.Kind)); err != nil {
		return fmt.Errorf("deleting %s: %w", t, err)
	}
	return nil
}

var (
	rdfTypeIRI      = sparql.RDFType.Expand()
	rdfsResourceIRI = sparql.RDFSResource.Expand()
)

func isResourceType(t sparql.Triple) bool {
	return t.P == rdfTypeIRI && t.O == rdfsResourceIRI
}
