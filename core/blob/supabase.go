package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type uploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage.FileOptions) (storage.FileUploadResponse, error)
	RemoveFile(bucketID string, paths []string) ([]storage.FileUploadResponse, error)
}

// SupabaseStore keeps objects in a public Supabase Storage bucket.
type SupabaseStore struct {
	client  uploader
	baseURL string
	bucket  string
	folder  string
}

func NewSupabaseStore(baseURL, key, bucket, folder string) *SupabaseStore {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SupabaseStore{
		client:  storage.NewClient(baseURL+"/storage/v1", key, nil),
		baseURL: baseURL,
		bucket:  bucket,
		folder:  folder,
	}
}

func (s *SupabaseStore) Put(ctx context.Context, obj Object) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	key := ObjectKey(s.folder, obj.FileName)
	contentType := obj.ContentType
	if _, err := s.client.UploadFile(s.bucket, key, obj.Body, storage.FileOptions{ContentType: &contentType}); err != nil {
		return Stored{}, fmt.Errorf("supabase upload: %w", err)
	}
	return Stored{
		Key:         key,
		URL:         fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key),
		Size:        obj.Size,
		ContentType: obj.ContentType,
	}, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, publicURL string) error {
	if publicURL == "" {
		return nil
	}
	bucket, object, err := parseObjectURL(publicURL)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(bucket, []string{object}); err != nil {
		return fmt.Errorf("supabase delete: %w", err)
	}
	return nil
}

// parseObjectURL splits ".../storage/v1/object/[public/]<bucket>/<path>".
func parseObjectURL(raw string) (string, string, error) {
	const marker = "/storage/v1/object/"
	idx := strings.Index(raw, marker)
	if idx == -1 {
		return "", "", fmt.Errorf("not a storage object url: %s", raw)
	}
	rest := strings.TrimPrefix(raw[idx+len(marker):], "public/")
	if q := strings.IndexAny(rest, "?#"); q != -1 {
		rest = rest[:q]
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse bucket/object from %s", raw)
	}
	object := parts[1]
	if u, err := url.PathUnescape(object); err == nil {
		object = u
	}
	return parts[0], object, nil
}
