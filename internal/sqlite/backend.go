package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// dbFile is the SQLite file inside the data dir. It is rebuilt from
// triples.jsonl on every Attach.
const dbFile = "store.db"

// Store is a triple store that implements types.StoreClient.
type Store struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
}

// NewStore creates a detached Store. Call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach opens the store in dataDir, creating the directory if needed, and
// loads the persisted triples. Returns ErrBackendAttached if already
// attached.
func (s *Store) Attach(dataDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrBackendAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// A single connection keeps every statement on the same database state.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	jsonlPath := filepath.Join(dataDir, triplesJSONL)
	if _, err := os.Stat(jsonlPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(jsonlPath, nil, 0o644); err != nil {
			db.Close()
			return fmt.Errorf("creating %s: %w", triplesJSONL, err)
		}
	}
	if err := loadTriples(db, jsonlPath); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	s.db = db
	s.dataDir = dataDir
	s.attached = true
	return nil
}

// Detach closes the database. It is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.attached = false
	return nil
}

// Update applies u atomically. The WHERE patterns are solved first; the
// delete templates are then grounded over every solution and removed,
// and only after that are the grounded insert templates added. Templates in the delete part with unbound variables are skipped,
// while an unbound variable in an insert template fails the whole update
// with types.ErrUnboundVariable.
//
// Deleting "<x> rdf:type rdfs:Resource" deletes the resource x, and with
// it every triple whose subject is x.
func (s *Store) Update(ctx context.Context, u sparql.Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrQueryRejected, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.ErrBackendDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	solutions, err := solve(ctx, tx, u.Where)
	if err != nil {
		return err
	}
	var deletes, inserts []sparql.Triple
	for _, b := range solutions {
		for _, t := range u.Delete {
			if g, ok := b.ground(t); ok {
				deletes = append(deletes, g)
			}
		}
		for _, t := range u.Insert {
			g, ok := b.ground(t)
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrUnboundVariable, t)
			}
			if g.S.Kind == sparql.KindLiteral || g.P.Kind == sparql.KindLiteral {
				return fmt.Errorf("%w: %w: %s", types.ErrQueryRejected, sparql.ErrLiteralPosition, g)
			}
			inserts = append(inserts, g)
		}
	}
	for _, g := range deletes {
		if err := deleteTriple(ctx, tx, g); err != nil {
			return err
		}
	}
	for _, g := range inserts {
		if err := insertTriple(ctx, tx, g); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return s.persistLocked(ctx)
}

// Solve returns the solutions of the basic graph pattern where. Bound
// terms are returned in compact form.
func (s *Store) Solve(ctx context.Context, where []sparql.Triple) ([]Binding, error) {
	for _, t := range where {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrBackendDetached
	}
	solutions, err := solve(ctx, s.db, where)
	if err != nil {
		return nil, err
	}
	for _, b := range solutions {
		for k, v := range b {
			b[k] = v.Compact()
		}
	}
	return solutions, nil
}

// Objects returns the objects of every (subject, predicate, ?) triple in
// insertion order.
func (s *Store) Objects(ctx context.Context, subject, predicate sparql.Term) ([]sparql.Term, error) {
	solutions, err := s.Solve(ctx, []sparql.Triple{sparql.T(subject, predicate, sparql.Var("o"))})
	if err != nil {
		return nil, err
	}
	out := make([]sparql.Term, 0, len(solutions))
	for _, b := range solutions {
		out = append(out, b["o"])
	}
	return out, nil
}

// Subjects returns the subjects of every (?, predicate, object) triple in
// insertion order.
func (s *Store) Subjects(ctx context.Context, predicate, object sparql.Term) ([]sparql.Term, error) {
	solutions, err := s.Solve(ctx, []sparql.Triple{sparql.T(sparql.Var("s"), predicate, object)})
	if err != nil {
		return nil, err
	}
	out := make([]sparql.Term, 0, len(solutions))
	for _, b := range solutions {
		out = append(out, b["s"])
	}
	return out, nil
}

// Len returns the number of stored triples.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return 0, types.ErrBackendDetached
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// persistLocked rewrites triples.jsonl from the database. Callers hold mu.
func (s *Store) persistLocked(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, subject_kind, predicate, predicate_kind, object, object_kind FROM triples ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("reading triples: %w", err)
	}
	defer rows.Close()

	var records []tripleRecord
	for rows.Next() {
		var r tripleRecord
		if err := rows.Scan(&r.S, &r.SK, &r.P, &r.PK, &r.O, &r.OK); err != nil {
			return fmt.Errorf("scanning triple: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	raw, err := encodeTriples(records)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(s.dataDir, triplesJSONL), raw)
}

// loadTriples inserts every record of the JSONL file at path.
func loadTriples(db *sql.DB, path string) error {
	raw, err := readJSONL(path)
	if err != nil {
		return err
	}
	for _, r := range decodeTriples(raw) {
		if _, err := db.Exec(insertSQL, r.S, r.SK, r.P, r.PK, r.O, r.OK); err != nil {
			return err
		}
	}
	return nil
}
