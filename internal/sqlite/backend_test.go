package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

const fileURI = "file:///home/tester/test-writeback-monitored/writeback-test-1.jpeg"

var (
	u        = sparql.Var("u")
	whatever = sparql.Var("whatever")
	res1     = sparql.IRI("urn:uuid:0001")
	title    = sparql.PName("nie:title")
	tag      = sparql.IRI(types.TagIRI)
)

func attach(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.Attach(t.TempDir()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { s.Detach() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.Update(context.Background(), sparql.Update{Insert: []sparql.Triple{
		sparql.T(res1, sparql.RDFType, sparql.RDFSResource),
		sparql.T(res1, sparql.NIEURL, sparql.Literal(fileURI)),
	}})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func titles(t *testing.T, s *Store) []string {
	t.Helper()
	objs, err := s.Objects(context.Background(), res1, title)
	if err != nil {
		t.Fatalf("Objects failed: %v", err)
	}
	var out []string
	for _, o := range objs {
		out = append(out, o.Value)
	}
	return out
}

func setTitle(value string) sparql.Update {
	return sparql.Update{
		Insert: []sparql.Triple{sparql.T(u, title, sparql.Literal(value))},
		Where:  []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.Literal(fileURI))},
	}
}

func cleanTitle() sparql.Update {
	return sparql.Update{
		Delete: []sparql.Triple{sparql.T(u, title, whatever)},
		Where: []sparql.Triple{
			sparql.T(u, sparql.NIEURL, sparql.Literal(fileURI)),
			sparql.T(u, title, whatever),
		},
	}
}

func TestStore_Attach(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if err := s.Attach(dir); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer s.Detach()

	for _, name := range []string{dbFile, triplesJSONL} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
	if err := s.Attach(dir); !errors.Is(err, types.ErrBackendAttached) {
		t.Errorf("expected ErrBackendAttached, got %v", err)
	}
}

func TestStore_Detach(t *testing.T) {
	s := NewStore()
	if err := s.Attach(t.TempDir()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Errorf("second Detach should be a no-op, got %v", err)
	}
	if err := s.Update(context.Background(), setTitle("x")); !errors.Is(err, types.ErrBackendDetached) {
		t.Errorf("expected ErrBackendDetached, got %v", err)
	}
	if _, err := s.Len(context.Background()); !errors.Is(err, types.ErrBackendDetached) {
		t.Errorf("expected ErrBackendDetached, got %v", err)
	}
}

func TestStore_InsertAndClean(t *testing.T) {
	s := attach(t)
	seed(t, s)
	ctx := context.Background()

	if err := s.Update(ctx, setTitle("nietitletest")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if got := titles(t, s); len(got) != 1 || got[0] != "nietitletest" {
		t.Fatalf("titles = %v, want [nietitletest]", got)
	}

	if err := s.Update(ctx, cleanTitle()); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if got := titles(t, s); len(got) != 0 {
		t.Errorf("titles after clean = %v, want none", got)
	}

	// Cleaning an absent value has no solutions and is not an error.
	if err := s.Update(ctx, cleanTitle()); err != nil {
		t.Errorf("clean of absent value failed: %v", err)
	}
}

func TestStore_InsertWithoutMatchIsNoop(t *testing.T) {
	s := attach(t)
	ctx := context.Background()

	if err := s.Update(ctx, setTitle("x")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestStore_InsertionOrder(t *testing.T) {
	s := attach(t)
	seed(t, s)
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		if err := s.Update(ctx, setTitle(v)); err != nil {
			t.Fatalf("insert %s failed: %v", v, err)
		}
	}
	got := titles(t, s)
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("titles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStore_UnboundInsertVariable(t *testing.T) {
	s := attach(t)
	seed(t, s)

	err := s.Update(context.Background(), sparql.Update{
		Insert: []sparql.Triple{sparql.T(u, title, sparql.Var("missing"))},
		Where:  []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.Literal(fileURI))},
	})
	if !errors.Is(err, types.ErrUnboundVariable) {
		t.Errorf("expected ErrUnboundVariable, got %v", err)
	}
}

func TestStore_InvalidUpdateRejected(t *testing.T) {
	s := attach(t)
	err := s.Update(context.Background(), sparql.Update{
		Insert: []sparql.Triple{sparql.T(sparql.PName("not a name"), title, sparql.Literal("x"))},
	})
	if !errors.Is(err, types.ErrQueryRejected) || !errors.Is(err, sparql.ErrInvalidTerm) {
		t.Errorf("expected ErrQueryRejected wrapping ErrInvalidTerm, got %v", err)
	}
}

func TestStore_ResourceDeletionCascades(t *testing.T) {
	s := attach(t)
	seed(t, s)
	ctx := context.Background()

	tagUpdate := sparql.Update{
		Insert: []sparql.Triple{
			sparql.T(tag, sparql.RDFType, sparql.NAOTag),
			sparql.T(tag, sparql.NAOPrefLabel, sparql.Literal(types.TagLabel)),
			sparql.T(u, sparql.NAOHasTag, tag),
		},
		Where: []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.Literal(fileURI))},
	}
	if err := s.Update(ctx, tagUpdate); err != nil {
		t.Fatalf("tag insert failed: %v", err)
	}

	labels, err := s.Solve(ctx, []sparql.Triple{
		sparql.T(res1, sparql.NAOHasTag, sparql.Var("t")),
		sparql.T(sparql.Var("t"), sparql.NAOPrefLabel, sparql.Var("label")),
	})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(labels) != 1 || labels[0]["label"].Value != types.TagLabel {
		t.Fatalf("labels = %v, want one %q", labels, types.TagLabel)
	}
	if got := labels[0]["t"]; got != tag {
		t.Errorf("bound tag = %v, want %v", got, tag)
	}

	untag := sparql.Update{
		Delete: []sparql.Triple{
			sparql.T(tag, sparql.RDFType, sparql.RDFSResource),
			sparql.T(u, sparql.NAOHasTag, tag),
		},
		Where: []sparql.Triple{sparql.T(u, sparql.NAOHasTag, tag)},
	}
	if err := s.Update(ctx, untag); err != nil {
		t.Fatalf("untag failed: %v", err)
	}

	objs, err := s.Objects(ctx, tag, sparql.NAOPrefLabel)
	if err != nil {
		t.Fatalf("Objects failed: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("tag label survived resource deletion: %v", objs)
	}
	subjects, err := s.Subjects(ctx, sparql.NAOHasTag, tag)
	if err != nil {
		t.Fatalf("Subjects failed: %v", err)
	}
	if len(subjects) != 0 {
		t.Errorf("edge survived: %v", subjects)
	}
	// The file's own resource is untouched.
	urls, err := s.Objects(ctx, res1, sparql.NIEURL)
	if err != nil || len(urls) != 1 {
		t.Errorf("file resource damaged: %v %v", urls, err)
	}
}

func TestStore_GroundDeleteWithEmptyWhere(t *testing.T) {
	s := attach(t)
	ctx := context.Background()

	err := s.Update(ctx, sparql.Update{Insert: []sparql.Triple{
		sparql.T(tag, sparql.RDFType, sparql.NAOTag),
		sparql.T(tag, sparql.NAOPrefLabel, sparql.Literal(types.TagLabel)),
	}})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err = s.Update(ctx, sparql.Update{Delete: []sparql.Triple{
		sparql.T(tag, sparql.RDFType, sparql.NAOTag),
		sparql.T(tag, sparql.NAOPrefLabel, sparql.Literal(types.TagLabel)),
	}})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n, _ := s.Len(ctx); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestStore_DeletesApplyBeforeInserts(t *testing.T) {
	s := attach(t)
	seed(t, s)
	ctx := context.Background()

	for _, v := range []string{"a", "b"} {
		if err := s.Update(ctx, setTitle(v)); err != nil {
			t.Fatalf("setTitle(%q) failed: %v", v, err)
		}
	}

	// Two solutions (?whatever = "a", "b"). The second solution's delete
	// must not remove the value inserted for the first.
	replace := sparql.Update{
		Delete: []sparql.Triple{sparql.T(u, title, whatever)},
		Insert: []sparql.Triple{sparql.T(u, title, sparql.Literal("b"))},
		Where: []sparql.Triple{
			sparql.T(u, sparql.NIEURL, sparql.Literal(fileURI)),
			sparql.T(u, title, whatever),
		},
	}
	if err := s.Update(ctx, replace); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := titles(t, s); len(got) != 1 || got[0] != "b" {
		t.Errorf("titles = %v, want [b]", got)
	}
}

func TestStore_LiteralAndIRIDistinct(t *testing.T) {
	s := attach(t)
	seed(t, s)
	ctx := context.Background()

	// nie:url is stored as a literal; an IRI with the same text must not match.
	solutions, err := s.Solve(ctx, []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.IRI(fileURI))})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 0 {
		t.Errorf("IRI matched a literal: %v", solutions)
	}
}

func TestStore_PersistsAcrossAttach(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewStore()
	if err := s.Attach(dir); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	seed(t, s)
	if err := s.Update(ctx, setTitle("kept")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	reopened := NewStore()
	if err := reopened.Attach(dir); err != nil {
		t.Fatalf("re-Attach failed: %v", err)
	}
	defer reopened.Detach()

	if got := titles(t, reopened); len(got) != 1 || got[0] != "kept" {
		t.Errorf("titles after reattach = %v, want [kept]", got)
	}
	objs, err := reopened.Objects(ctx, res1, title)
	if err != nil {
		t.Fatalf("Objects failed: %v", err)
	}
	if objs[0].Kind != sparql.KindLiteral {
		t.Errorf("kind = %v, want literal", objs[0].Kind)
	}
}

func TestStore_SolveCompactsTerms(t *testing.T) {
	s := attach(t)
	seed(t, s)

	solutions, err := s.Solve(context.Background(), []sparql.Triple{sparql.T(res1, sparql.Var("p"), sparql.Var("o"))})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 2 {
		t.Fatalf("got %d solutions, want 2", len(solutions))
	}
	if solutions[0]["p"] != sparql.RDFType || solutions[0]["o"] != sparql.RDFSResource {
		t.Errorf("first solution = %v, want rdf:type rdfs:Resource", solutions[0])
	}
	if solutions[1]["p"] != sparql.NIEURL {
		t.Errorf("second predicate = %v, want nie:url", solutions[1]["p"])
	}
}
