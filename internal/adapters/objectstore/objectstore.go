// Package objectstore uploads images for the vision model to fetch.
package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// BucketStore PUTs objects to <endpoint>/<bucket>/<key>.
type BucketStore struct {
	client    *resty.Client
	bucket    string
	publicURL string
}

type BucketConfig struct {
	Endpoint  string
	Bucket    string
	Token     string
	PublicURL string
	Timeout   time.Duration
}

func NewBucketStore(cfg BucketConfig) *BucketStore {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &BucketStore{client: c, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}
}

func (s *BucketStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put("/" + s.bucket + "/" + key)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("upload %s: status %d: %s", key, resp.StatusCode(), resp.String())
	}
	return s.publicURL + "/" + key, nil
}

// DirStore writes objects below a directory that the HTTP server exposes.
type DirStore struct {
	root      string
	publicURL string
}

func NewDirStore(root, publicURL string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *DirStore) Root() string { return s.root }

func (s *DirStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

// cleanKey rejects keys that would escape the bucket or directory.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
