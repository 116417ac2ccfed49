// Package loopback is an in-process stand-in for the desktop indexer and
// its writeback service. Updates go to an embedded triple store; a short
// while later the affected files get a metadata sidecar reflecting the
// store, limited to what writeback supports for each media type. The
// harness uses it to verify itself end to end.
package loopback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/internal/sqlite"
	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// DefaultDelay is how long the writer lags behind the store.
const DefaultDelay = 20 * time.Millisecond

var nfoFileDataObject = sparql.PName("nfo:FileDataObject")

// Options configures a Backend.
type Options struct {
	DataDir      string
	Delay        time.Duration // default: DefaultDelay
	Capabilities Capabilities  // default: DefaultCapabilities()
	Logger       *zap.Logger   // default: no-op
}

// Backend implements types.StoreClient. Each accepted update schedules an
// asynchronous writeback of every indexed file.
type Backend struct {
	store  *sqlite.Store
	caps   Capabilities
	delay  time.Duration
	logger *zap.Logger

	mu     sync.RWMutex // guards files and closed
	files  map[string]types.TestFile
	closed bool

	writeMu  sync.Mutex // serializes writebacks
	inflight sync.WaitGroup
}

// New opens a Backend on a triple store in opts.DataDir.
func New(opts Options) (*Backend, error) {
	store := sqlite.NewStore()
	if err := store.Attach(opts.DataDir); err != nil {
		return nil, fmt.Errorf("attaching store: %w", err)
	}
	b := &Backend{
		store:  store,
		caps:   opts.Capabilities,
		delay:  opts.Delay,
		logger: opts.Logger,
		files:  make(map[string]types.TestFile),
	}
	if b.caps == nil {
		b.caps = DefaultCapabilities()
	}
	if b.delay == 0 {
		b.delay = DefaultDelay
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b, nil
}

// Extractor returns an extractor that reads what this backend writes.
func (b *Backend) Extractor() *Extractor {
	return NewExtractor(b.caps)
}

// Store exposes the underlying triple store for inspection.
func (b *Backend) Store() *sqlite.Store {
	return b.store
}

// Index registers files with the store, the way the indexer does for files
// under a monitored directory: any earlier resource for the same URL is
// dropped and a fresh resource with the file's nie:url is created. Sidecars
// are written synchronously so that indexing starts from a clean file.
func (b *Backend) Index(ctx context.Context, files []types.TestFile) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return types.ErrBackendDetached
	}
	for _, f := range files {
		if err := b.indexOne(ctx, f); err != nil {
			b.mu.Unlock()
			return err
		}
		b.files[f.URI] = f
	}
	b.mu.Unlock()

	return b.flush(ctx)
}

func (b *Backend) indexOne(ctx context.Context, f types.TestFile) error {
	u := sparql.Var("u")
	drop := sparql.Update{
		Delete: []sparql.Triple{sparql.T(u, sparql.RDFType, sparql.RDFSResource)},
		Where:  []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.Literal(f.URI))},
	}
	if err := b.store.Update(ctx, drop); err != nil {
		return fmt.Errorf("dropping stale resource for %s: %w", f.Name, err)
	}

	res := sparql.IRI("urn:uuid:" + newResourceID())
	create := sparql.Update{Insert: []sparql.Triple{
		sparql.T(res, sparql.RDFType, sparql.RDFSResource),
		sparql.T(res, sparql.RDFType, nfoFileDataObject),
		sparql.T(res, sparql.NIEURL, sparql.Literal(f.URI)),
	}}
	if err := b.store.Update(ctx, create); err != nil {
		return fmt.Errorf("indexing %s: %w", f.Name, err)
	}
	b.logger.Debug("indexed file", zap.String("uri", f.URI), zap.String("resource", res.Value))
	return nil
}

// Update applies u to the store and schedules writeback. The returned
// error only covers the store; writeback failures are logged.
func (b *Backend) Update(ctx context.Context, u sparql.Update) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return types.ErrBackendDetached
	}
	if err := b.store.Update(ctx, u); err != nil {
		return err
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		time.Sleep(b.delay)
		if err := b.flush(context.Background()); err != nil {
			b.logger.Error("writeback failed", zap.Error(err))
		}
	}()
	return nil
}

// Close waits for scheduled writebacks and detaches the store.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	return b.store.Detach()
}

// flush writes the sidecar of every indexed file whose metadata changed,
// then rewrites the file itself.
func (b *Backend) flush(ctx context.Context) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.RLock()
	files := make([]types.TestFile, 0, len(b.files))
	for _, f := range b.files {
		files = append(files, f)
	}
	b.mu.RUnlock()

	for _, f := range files {
		if err := b.writeBack(ctx, f); err != nil {
			return fmt.Errorf("writing back %s: %w", f.Name, err)
		}
	}
	return nil
}

func (b *Backend) writeBack(ctx context.Context, f types.TestFile) error {
	md, err := b.render(ctx, f)
	if err != nil {
		return err
	}
	data, err := json.Marshal(b.caps.filter(f.MediaType, md))
	if err != nil {
		return err
	}

	_, current, err := readSidecar(f.Path)
	if err == nil && bytes.Equal(current, data) {
		return nil
	}
	if current == nil && string(data) == "{}" {
		return nil
	}
	if err := writeSidecar(f.Path, data); err != nil {
		return err
	}
	if err := touch(f.Path); err != nil {
		b.logger.Warn("touching written-back file", zap.String("path", f.Path), zap.Error(err))
	}
	b.logger.Debug("wrote back metadata", zap.String("uri", f.URI), zap.ByteString("sidecar", data))
	return nil
}

// render collects everything the store holds for f under sidecar keys.
func (b *Backend) render(ctx context.Context, f types.TestFile) (types.Metadata, error) {
	resources, err := b.store.Subjects(ctx, sparql.NIEURL, sparql.Literal(f.URI))
	if err != nil {
		return nil, err
	}
	md := types.Metadata{}
	for _, res := range resources {
		for key, pred := range map[string]sparql.Term{
			keyTitle:       sparql.PName(types.PropTitle),
			keyDescription: sparql.PName(types.PropDescription),
		} {
			objs, err := b.store.Objects(ctx, res, pred)
			if err != nil {
				return nil, err
			}
			md[key] = append(md[key], literals(objs)...)
		}

		keywords, err := b.store.Objects(ctx, res, sparql.PName(types.PropKeyword))
		if err != nil {
			return nil, err
		}
		md[keyLabels] = append(md[keyLabels], literals(keywords)...)

		labels, err := b.store.Solve(ctx, []sparql.Triple{
			sparql.T(res, sparql.NAOHasTag, sparql.Var("tag")),
			sparql.T(sparql.Var("tag"), sparql.NAOPrefLabel, sparql.Var("label")),
		})
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			if l["label"].Kind == sparql.KindLiteral {
				md[keyLabels] = append(md[keyLabels], l["label"].Value)
			}
		}
	}
	return md, nil
}

func literals(terms []sparql.Term) []string {
	var out []string
	for _, t := range terms {
		if t.Kind == sparql.KindLiteral {
			out = append(out, t.Value)
		}
	}
	return out
}

func newResourceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
