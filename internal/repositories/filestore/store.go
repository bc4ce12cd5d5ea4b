// Package filestore keeps every quiz collection in a single JSON document on disk.
// All access is serialized by one mutex and every committed write replaces the
// file atomically (temp file + rename), so concurrent requests cannot lose updates.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

var ErrStoreClosed = errors.New("file store is closed")

type document struct {
	Users         []*models.User           `json:"users"`
	Attempts      []*models.Attempt        `json:"attempts"`
	Sessions      map[string]int           `json:"sessions"`
	Notifications []*models.Notification   `json:"notifications"`
	BlockedUsers  []*models.BlockedUser    `json:"blockedUsers"`
	Logs          []*models.LogEntry       `json:"logs"`
	Questions     []*models.Question       `json:"questions"`
	Violations    []*models.ViolationEvent `json:"violationEvents"`
}

func newDocument() *document {
	return &document{Sessions: map[string]int{}}
}

func (d *document) clone() (*document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}
	out := newDocument()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}
	if out.Sessions == nil {
		out.Sessions = map[string]int{}
	}
	return out, nil
}

// access runs callbacks against the document. The store implementation locks and
// persists; the transaction implementation works on a private copy under the caller's lock.
type access interface {
	read(fn func(d *document) error) error
	write(fn func(d *document) error) error
}

type Option func(*Store)

// WithUserRepository replaces the document's user collection, e.g. with a CSV roster.
func WithUserRepository(users repositories.UserRepository) Option {
	return func(s *Store) { s.users = users }
}

// WithSessionRepository replaces the document's session counters, e.g. with redis.
func WithSessionRepository(sessions repositories.SessionRepository) Option {
	return func(s *Store) { s.sessions = sessions }
}

type Store struct {
	mu     sync.Mutex
	path   string
	doc    *document
	closed bool

	users    repositories.UserRepository
	sessions repositories.SessionRepository
}

// Open loads the document at path, creating an empty one if the file does not exist.
// An empty path keeps the document in memory only.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, doc: newDocument()}
	for _, opt := range opts {
		opt(s)
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := s.save(s.doc); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read data file: %w", err)
	case len(data) > 0:
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse data file: %w", err)
		}
		s.doc = doc
	}

	return s, nil
}

// Repository returns the repository view over this store.
func (s *Store) Repository() repositories.Repository {
	return &view{store: s, acc: s}
}

func (s *Store) read(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return fn(s.doc)
}

func (s *Store) write(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(fn)
}

func (s *Store) commitLocked(fn func(d *document) error) error {
	if s.closed {
		return ErrStoreClosed
	}

	next, err := s.doc.clone()
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *Store) transaction(fn func(repositories.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked(func(d *document) error {
		tx := &view{store: s, acc: &txAccess{doc: d}, inTx: true}
		return fn(tx)
	})
}

func (s *Store) save(d *document) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".quizdb-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

// Close stops further access. The document is already on disk after every commit.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

type txAccess struct {
	doc *document
}

func (t *txAccess) read(fn func(d *document) error) error  { return fn(t.doc) }
func (t *txAccess) write(fn func(d *document) error) error { return fn(t.doc) }

// view implements repositories.Repository over an access strategy
type view struct {
	store *Store
	acc   access
	inTx  bool
}

func (v *view) User() repositories.UserRepository {
	if v.store.users != nil {
		return v.store.users
	}
	return &userRepository{acc: v.acc}
}

func (v *view) Block() repositories.BlockRepository {
	return &blockRepository{acc: v.acc}
}

func (v *view) Session() repositories.SessionRepository {
	if v.store.sessions != nil {
		return v.store.sessions
	}
	return &sessionRepository{acc: v.acc}
}

func (v *view) Attempt() repositories.AttemptRepository {
	return &attemptRepository{acc: v.acc}
}

func (v *view) Violation() repositories.ViolationRepository {
	return &violationRepository{acc: v.acc}
}

func (v *view) Question() repositories.QuestionRepository {
	return &questionRepository{acc: v.acc}
}

func (v *view) Notification() repositories.NotificationRepository {
	return &notificationRepository{acc: v.acc}
}

func (v *view) Log() repositories.LogRepository {
	return &logRepository{acc: v.acc}
}

// WithTransaction runs fn against a private copy of the document and commits it
// only if fn succeeds. Nested calls join the running transaction.
func (v *view) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if v.inTx {
		return fn(v)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.store.transaction(fn)
}

func (v *view) Ping(ctx context.Context) error {
	return v.store.ping()
}

func (v *view) Close() error {
	return v.store.Close()
}

// RepositoryManager implements repositories.RepositoryManager for the file store
type RepositoryManager struct {
	path  string
	opts  []Option
	store *Store
	repo  repositories.Repository
}

func NewRepositoryManager(path string, opts ...Option) repositories.RepositoryManager {
	return &RepositoryManager{path: path, opts: opts}
}

func (rm *RepositoryManager) Initialize() error {
	store, err := Open(rm.path, rm.opts...)
	if err != nil {
		return err
	}
	rm.store = store
	rm.repo = store.Repository()
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.store == nil {
		return nil
	}
	return rm.store.Close()
}
