package driven

import "context"

// FileStore keeps uploaded bytes under generated names.
// Caller-supplied names are never used as storage paths.
type FileStore interface {
	// Save writes data and returns the generated stored name.
	// originalName only contributes its extension.
	Save(ctx context.Context, originalName string, data []byte) (string, error)

	// Read returns the bytes stored under storedName.
	Read(ctx context.Context, storedName string) ([]byte, error)

	// Delete removes storedName. Deleting a missing file is not an error.
	Delete(ctx context.Context, storedName string) error
}
