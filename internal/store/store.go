package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrNotExist is returned by a Backend when nothing has been written yet.
var ErrNotExist = errors.New("document does not exist")

// Backend persists the raw JSON document.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Snapshotter is implemented by backends that can produce a native snapshot
// (e.g. a SQLite database file) instead of a JSON export.
type Snapshotter interface {
	BackupTo(ctx context.Context, dstPath string) error
}

// Store serializes every load-mutate-save cycle on the document.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.SugaredLogger
}

func New(backend Backend, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{backend: backend, log: log.Named("store")}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Load returns the current document. Missing or unreadable data yields the
// default document.
func (s *Store) Load(ctx context.Context) Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) Document {
	raw, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNotExist) {
		return Default()
	}
	if err != nil {
		s.log.Warnw("read document failed, using defaults", "err", err)
		return Default()
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warnw("corrupt document, using defaults", "err", err)
		return Default()
	}
	doc.normalize()
	return doc
}

// Save replaces the persisted document.
func (s *Store) Save(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

func (s *Store) save(ctx context.Context, doc Document) error {
	doc.normalize()
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.backend.Write(ctx, b); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Update loads the document, applies fn and persists the result while holding
// the store lock. If fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	if err := fn(&doc); err != nil {
		return doc, err
	}
	if err := s.save(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// KnownUsers returns a snapshot of the broadcast population.
func (s *Store) KnownUsers(ctx context.Context) []int64 {
	return s.Load(ctx).UserIDs
}

// Forget removes ids from the known users in a single write and returns the
// remaining population size.
func (s *Store) Forget(ctx context.Context, ids []int64) (int, error) {
	doc, err := s.Update(ctx, func(d *Document) error {
		d.ForgetUsers(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doc.UserIDs), nil
}

// Export returns the document as indented JSON.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	doc := s.Load(ctx)
	return json.MarshalIndent(doc, "", "    ")
}

// Snapshot writes a backup to dstPath, natively when the backend supports it.
func (s *Store) Snapshot(ctx context.Context, dstPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sn, ok := s.backend.(Snapshotter); ok {
		return sn.BackupTo(ctx, dstPath)
	}
	doc := s.load(ctx)
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return writeFileAtomic(dstPath, b)
}
