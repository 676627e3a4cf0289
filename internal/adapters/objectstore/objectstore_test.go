package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStorePut(t *testing.T) {
	var gotPath, gotType, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewBucketStore(BucketConfig{
		Endpoint:  srv.URL + "/",
		Bucket:    "wanwu",
		Token:     "secret",
		PublicURL: "https://cdn.example.com/wanwu/",
		Timeout:   5 * time.Second,
	})
	url, err := store.Put(context.Background(), "zhiwu/1-abcdef.png", []byte("img"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/wanwu/zhiwu/1-abcdef.png", url)
	assert.Equal(t, "/wanwu/zhiwu/1-abcdef.png", gotPath)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, []byte("img"), gotBody)
}

func TestBucketStoreRejectsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	store := NewBucketStore(BucketConfig{Endpoint: srv.URL, Bucket: "wanwu", Timeout: time.Second})
	_, err := store.Put(context.Background(), "zhiwu/x.png", []byte("img"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = store.Put(context.Background(), "../escape.png", []byte("img"), "image/png")
	require.Error(t, err)
}

func TestDirStorePut(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDirStore(root, "http://127.0.0.1:8080/uploads")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "zhiwu/2-qwerty.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/uploads/zhiwu/2-qwerty.jpg", url)

	data, err := os.ReadFile(filepath.Join(root, "zhiwu", "2-qwerty.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	for _, key := range []string{"", "/abs.png", "zhiwu/../../x.png", "a//b.png"} {
		_, err := store.Put(context.Background(), key, []byte("x"), "image/png")
		assert.Error(t, err, key)
	}
}
