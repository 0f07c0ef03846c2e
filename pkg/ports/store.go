package ports

import (
	"context"

	"github.com/warroomhq/warroom/pkg/domain"
)

// SessionStore is the durable representation of sessions, one record
// per session id, independent of the in-memory registry.
type SessionStore interface {
	// Save persists a snapshot, overwriting any prior record for the
	// same id. It returns the storage location (a file path for the
	// file adapter, a key for others).
	Save(ctx context.Context, session *domain.Session) (string, error)

	// Load retrieves the stored snapshot. Returns
	// domain.ErrSessionNotFound if no record exists and a wrapped
	// domain.ErrDecode on malformed content. A format-version mismatch
	// is logged, not failed.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// List returns decode-light summaries of every valid record,
	// sorted by UpdatedAt descending. Records that fail to decode are
	// silently skipped.
	List(ctx context.Context) ([]domain.Summary, error)

	// Delete removes the record. Returns domain.ErrSessionNotFound if
	// absent.
	Delete(ctx context.Context, id string) error

	// Export copies the stored record for id to an explicit
	// destination path.
	Export(ctx context.Context, id, destination string) error

	// ExportAuto exports into the store's exports directory under a
	// "{id}_{timestamp}" name and returns the destination path.
	ExportAuto(ctx context.Context, id string) (string, error)

	// Import validates an exported record and copies it into the
	// store keyed by its embedded session id, which it returns.
	Import(ctx context.Context, source string) (string, error)
}
