package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/domain"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestStateRepositoryUpsertAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "wanwu_test.db"))
	repo := NewStateRepository(db)

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}

	if _, err := repo.Get(ctx, "wanwu_merit"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := repo.Put(ctx, "wanwu_merit", []byte(`108`)); err != nil {
		t.Fatalf("put merit: %v", err)
	}
	if err := repo.Put(ctx, "wanwu_merit", []byte(`111`)); err != nil {
		t.Fatalf("overwrite merit: %v", err)
	}
	got, err := repo.Get(ctx, "wanwu_merit")
	if err != nil {
		t.Fatalf("get merit: %v", err)
	}
	if string(got) != "111" {
		t.Fatalf("expected upserted value 111, got %s", got)
	}

	_ = repo.Put(ctx, "wanwu_profile", []byte(`{"nickname":"A"}`))
	_ = repo.Put(ctx, "wanwuXprofile", []byte(`{}`))
	_ = repo.Put(ctx, "other_member", []byte(`true`))

	listed, err := repo.List(ctx, "wanwu_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("underscore in prefix must match literally, got %d keys: %v", len(listed), listed)
	}
	if string(listed["wanwu_profile"]) != `{"nickname":"A"}` {
		t.Fatalf("unexpected profile value: %s", listed["wanwu_profile"])
	}

	if err := repo.Delete(ctx, "wanwu_profile", "wanwu_merit"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 remaining keys, got %v", all)
	}
}

func TestProfileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wanwu_profile.db")

	db := openTestDB(t, path)
	svc, err := application.NewProfileService(ctx, NewStateRepository(db))
	if err != nil {
		t.Fatalf("new profile service: %v", err)
	}
	if _, err := svc.Login(ctx, domain.LifeParameters{Nickname: "A", BirthDate: "2000-01-01", BirthTime: "08:00", BirthCity: "X"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.GuardianCheckIn(ctx); err != nil {
		t.Fatalf("guardian check-in: %v", err)
	}
	if err := Close(db); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestDB(t, path)
	again, err := application.NewProfileService(ctx, NewStateRepository(reopened))
	if err != nil {
		t.Fatalf("reload profile service: %v", err)
	}
	snap, err := again.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.LoggedIn || snap.Core == nil || snap.FirstHexagram == nil {
		t.Fatalf("expected restored profile, got %+v", snap)
	}
	if snap.Merit != 113 {
		t.Fatalf("expected merit 113 after bonus and check-in, got %d", snap.Merit)
	}
	if snap.LastGuardian == nil {
		t.Fatalf("expected last guardian time to persist")
	}
	if _, err := again.GuardianCheckIn(ctx); !errors.Is(err, domain.ErrAlreadyCheckedIn) {
		t.Fatalf("expected already checked in after reopen, got %v", err)
	}
}
