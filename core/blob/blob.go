// Package blob stores uploaded document files and hands back their URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"dms-server/config"
	"github.com/gofrs/uuid/v5"
	"github.com/gosimple/slug"
)

type Object struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Stored struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

type Store interface {
	Put(ctx context.Context, obj Object) (Stored, error)
	// Delete removes the object behind a URL previously returned by Put.
	Delete(ctx context.Context, url string) error
}

// ObjectKey builds "<folder>/<slug>-<uuid><ext>" from the client file name.
func ObjectKey(folder, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	if base == "" {
		base = "file"
	}
	key := fmt.Sprintf("%s-%s%s", base, uuid.Must(uuid.NewV4()).String(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

func New(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket, cfg.Folder), nil
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, cfg.Folder)
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}
