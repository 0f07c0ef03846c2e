// Package redis implements ports.SessionStore on Redis. Sessions are
// stored as the same versioned JSON envelope the file store writes,
// so exports from either backend produce identical .wrs files.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/warroomhq/warroom/pkg/domain"
)

// FormatVersion is the envelope version written by this build.
const FormatVersion = "1.0"

type envelope struct {
	FormatVersion string          `json:"format_version"`
	Session       *domain.Session `json:"session"`
	SavedAt       time.Time       `json:"saved_at"`
}

// Store implements ports.SessionStore using Redis.
type Store struct {
	client     *backend.Client
	prefix     string
	ttl        time.Duration
	exportPath string
	log        *slog.Logger
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithExportPath sets the directory ExportAuto writes into.
func WithExportPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.exportPath = path
		}
	}
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:     client,
		prefix:     "warroom:session:",
		ttl:        0, // no expiration by default
		exportPath: filepath.Join(".warroom", "exports"),
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session envelope and indexes it by UpdatedAt.
// The returned location is the Redis key.
func (s *Store) Save(ctx context.Context, session *domain.Session) (string, error) {
	if session == nil || session.ID == "" {
		return "", fmt.Errorf("session id cannot be empty")
	}

	data, err := json.Marshal(envelope{
		FormatVersion: FormatVersion,
		Session:       session,
		SavedAt:       time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(session.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(session.UpdatedAt.UnixNano()),
		Member: session.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save to redis: %w", err)
	}
	return s.key(session.ID), nil
}

// Load retrieves and decodes the session.
func (s *Store) Load(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return s.decode(id, val)
}

func (s *Store) decode(id string, data []byte) (*domain.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, id, err)
	}
	if env.Session == nil {
		return nil, fmt.Errorf("%w: %s: envelope has no session", domain.ErrDecode, id)
	}
	if env.FormatVersion != FormatVersion {
		s.log.Warn("session envelope format version mismatch",
			"session_id", id,
			"got", env.FormatVersion,
			"want", FormatVersion)
	}
	return env.Session, nil
}

// List returns summaries of all indexed sessions, newest first.
// Index entries whose value is missing or corrupt are pruned from the
// index with a warning.
func (s *Store) List(ctx context.Context) ([]domain.Summary, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]domain.Summary, 0, len(ids))
	for _, id := range ids {
		session, err := s.Load(ctx, id)
		if err != nil {
			s.log.Warn("pruning unreadable session from index", "session_id", id, "err", err)
			s.client.ZRem(ctx, s.indexKey(), id)
			continue
		}
		summaries = append(summaries, session.Summarize())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes the session and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	deleted, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if err := s.client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to deindex session: %w", err)
	}
	if deleted == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Export writes the stored envelope bytes to destination as a .wrs
// file readable by the file store.
func (s *Store) Export(ctx context.Context, id, destination string) error {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fmt.Errorf("failed to ensure export directory: %w", err)
	}
	if err := os.WriteFile(destination, val, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// ExportAuto exports into the export directory with a timestamped
// filename and returns the path written.
func (s *Store) ExportAuto(ctx context.Context, id string) (string, error) {
	name := fmt.Sprintf("%s_%s.wrs", id, time.Now().UTC().Format("20060102_150405"))
	dest := filepath.Join(s.exportPath, name)
	if err := s.Export(ctx, id, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Import reads a .wrs envelope from source and saves the session under
// its own ID.
func (s *Store) Import(ctx context.Context, source string) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read import file: %w", err)
	}
	session, err := s.decode(filepath.Base(source), data)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(session.ID, "session_") {
		return "", fmt.Errorf("%w: %s: unexpected session id %q", domain.ErrDecode, filepath.Base(source), session.ID)
	}
	if _, err := s.Save(ctx, session); err != nil {
		return "", err
	}
	return session.ID, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
