package writeback

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// fakeStore records every update. fail, when set, decides per update
// whether the store rejects it.
type fakeStore struct {
	mu      sync.Mutex
	updates []sparql.Update
	fail    func(n int, u sparql.Update) error
}

func (s *fakeStore) Update(_ context.Context, u sparql.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.updates)
	s.updates = append(s.updates, u)
	if err := u.Validate(); err != nil {
		return err
	}
	if s.fail != nil {
		return s.fail(n, u)
	}
	return nil
}

func (s *fakeStore) recorded() []sparql.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sparql.Update(nil), s.updates...)
}

// fakeExtractor returns md, or err, and counts calls. When next is set it
// supplies the metadata for each call instead.
type fakeExtractor struct {
	mu    sync.Mutex
	md    types.Metadata
	err   error
	calls int
	next  func(call int) types.Metadata
}

func (e *fakeExtractor) GetMetadata(_ context.Context, _, _ string) (types.Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.next != nil {
		return e.next(e.calls), nil
	}
	return e.md, nil
}

func isDelete(u sparql.Update) bool { return len(u.Delete) > 0 && len(u.Insert) == 0 }
func isInsert(u sparql.Update) bool { return len(u.Insert) > 0 && len(u.Delete) == 0 }
