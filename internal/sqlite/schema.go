// Package sqlite implements an embedded triple store on SQLite. It applies
// typed SPARQL updates with the resource semantics of the desktop store the
// harness targets, and persists its triples to a JSONL file that is the
// source of truth between runs.
package sqlite

// Schema DDL. Every position carries its term kind so that an IRI and a
// literal with the same text stay distinct.
const (
	createTriples = `CREATE TABLE IF NOT EXISTS triples (
    subject TEXT NOT NULL,
    subject_kind INTEGER NOT NULL,
    predicate TEXT NOT NULL,
    predicate_kind INTEGER NOT NULL,
    object TEXT NOT NULL,
    object_kind INTEGER NOT NULL,
    PRIMARY KEY (subject, predicate, object, object_kind)
);`

	idxTriplesPredicateObject = `CREATE INDEX IF NOT EXISTS idx_triples_predicate_object ON triples(predicate, object);`
)

// schemaDDL lists the statements run on Attach, in order.
var schemaDDL = []string{
	createTriples,
	idxTriplesPredicateObject,
}
