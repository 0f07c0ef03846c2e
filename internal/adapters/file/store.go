// Package file implements ports.SessionStore on the local filesystem.
// Sessions are stored as .wrs files (a versioned JSON envelope) in a
// configured directory, with exports written to a sibling directory.
package file

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

	"github.com/warroomhq/warroom/pkg/domain"
)

// FormatVersion is the envelope version written by this build.
const FormatVersion = "1.0"

const fileExt = ".wrs"

// envelope wraps a session on disk with versioning metadata.
type envelope struct {
	FormatVersion string          `json:"format_version"`
	Session       *domain.Session `json:"session"`
	SavedAt       time.Time       `json:"saved_at"`
}

// Store implements ports.SessionStore using the local filesystem.
type Store struct {
	basePath   string
	exportPath string
	log        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal warnings (corrupt
// files during listing, format version drift).
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithExportPath overrides the directory for ExportAuto. It defaults
// to an "exports" directory next to the session directory.
func WithExportPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.exportPath = path
		}
	}
}

// New creates a Store rooted at basePath. If basePath is empty, it
// defaults to ".warroom/sessions".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".warroom", "sessions")
	}
	s := &Store{
		basePath:   basePath,
		exportPath: filepath.Join(filepath.Dir(basePath), "exports"),
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the session atomically: temp file, fsync, rename.
// It returns the final file path.
func (s *Store) Save(ctx context.Context, session *domain.Session) (string, error) {
	if session == nil || session.ID == "" {
		return "", fmt.Errorf("session id cannot be empty")
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure session directory: %w", err)
	}

	destPath := filepath.Join(s.basePath, session.ID+fileExt)

	data, err := json.MarshalIndent(envelope{
		FormatVersion: FormatVersion,
		Session:       session,
		SavedAt:       time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := writeFileAtomic(s.basePath, destPath, data); err != nil {
		return "", err
	}
	return destPath, nil
}

// writeFileAtomic writes data to destPath via a temp file in dir.
// The temp file lives in the same directory so the rename stays on
// one filesystem.
func writeFileAtomic(dir, destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, "tmp-*"+fileExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Close before rename; an open file cannot be renamed on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows os.Rename fails if dest exists, so clear it first.
	// The delete+rename window is acceptable compared to a partial
	// write of the destination.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Load reads and decodes the session file for the given ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	return s.readEnvelope(filepath.Join(s.basePath, id+fileExt))
}

func (s *Store) readEnvelope(path string) (*domain.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, filepath.Base(path), err)
	}
	if env.Session == nil {
		return nil, fmt.Errorf("%w: %s: envelope has no session", domain.ErrDecode, filepath.Base(path))
	}
	if env.FormatVersion != FormatVersion {
		// Older envelopes still load; warn so the drift is visible.
		s.log.Warn("session file format version mismatch",
			"file", filepath.Base(path),
			"got", env.FormatVersion,
			"want", FormatVersion)
	}
	return env.Session, nil
}

// List returns summaries of all stored sessions, newest first.
// Files that fail to decode are skipped with a warning rather than
// failing the whole listing.
func (s *Store) List(ctx context.Context) ([]domain.Summary, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Summary{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]domain.Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		session, err := s.readEnvelope(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable session file", "file", entry.Name(), "err", err)
			continue
		}
		summaries = append(summaries, session.Summarize())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	err := os.Remove(filepath.Join(s.basePath, id+fileExt))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Export copies the stored session to destination, re-encoding so the
// exported envelope carries the current format version.
func (s *Store) Export(ctx context.Context, id, destination string) error {
	session, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(envelope{
		FormatVersion: FormatVersion,
		Session:       session,
		SavedAt:       time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure export directory: %w", err)
	}
	return writeFileAtomic(dir, destination, data)
}

// ExportAuto exports the session into the export directory with a
// timestamped filename and returns the path written.
func (s *Store) ExportAuto(ctx context.Context, id string) (string, error) {
	name := fmt.Sprintf("%s_%s%s", id, time.Now().UTC().Format("20060102_150405"), fileExt)
	dest := filepath.Join(s.exportPath, name)
	if err := s.Export(ctx, id, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Import reads a session envelope from source and saves it into the
// store under its own ID, returning that ID.
func (s *Store) Import(ctx context.Context, source string) (string, error) {
	session, err := s.readEnvelope(source)
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
