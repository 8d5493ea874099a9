package filestore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

var (
	ErrNotFound    = serrors.NewError("FILESTORE_NOT_FOUND", "file not found", "")
	ErrInvalidName = serrors.NewError("FILESTORE_INVALID_NAME", "invalid file name", "")
)

// Store is a flat, filename-addressed byte store.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	ReadToString(ctx context.Context, name string) (string, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// CleanName rejects names that could escape the store root.
func CleanName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(n, "\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := path.Clean("/" + n)[1:]
	if cleaned == "" || cleaned != n || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}
