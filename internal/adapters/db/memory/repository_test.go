package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/herohuhu666/wanwu/internal/domain"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	if _, err := repo.Get(ctx, "wanwu_merit"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	value := []byte(`108`)
	if err := repo.Put(ctx, "wanwu_merit", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = '9'

	got, err := repo.Get(ctx, "wanwu_merit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "108" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}

	if err := repo.Put(ctx, "wanwu_profile", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, "other_key", []byte(`1`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	listed, err := repo.List(ctx, "wanwu_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 namespaced keys, got %d", len(listed))
	}

	if err := repo.Delete(ctx, "wanwu_merit", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if keys := repo.Keys(); len(keys) != 2 || keys[0] != "other_key" {
		t.Fatalf("unexpected keys after delete: %v", keys)
	}
}
