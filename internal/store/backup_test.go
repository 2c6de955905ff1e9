package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

func setupBackupStore(t *testing.T) *BackupStore {
	t.Helper()
	return NewBackupStore(setupTestDB(t))
}

var backupBase = time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)

func TestBackupCreate(t *testing.T) {
	bs := setupBackupStore(t)

	b, err := bs.Create(context.Background(), "backup-2026.db.enc", "backups/backup-2026.db.enc", backupBase)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.Filename != "backup-2026.db.enc" {
		t.Errorf("filename = %q, want %q", b.Filename, "backup-2026.db.enc")
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}
	if b.StartedAt == nil || !b.StartedAt.Equal(backupBase) {
		t.Errorf("started_at = %v, want %v", b.StartedAt, backupBase)
	}
	if !b.CreatedAt.Equal(backupBase) {
		t.Errorf("created_at = %v, want %v", b.CreatedAt, backupBase)
	}
}

func TestBackupUpdateStatus(t *testing.T) {
	bs := setupBackupStore(t)
	ctx := context.Background()

	b, _ := bs.Create(ctx, "test.db.enc", "backups/test.db.enc", backupBase)
	if err := bs.UpdateStatus(ctx, b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusUploading {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusUploading)
	}

	if err := bs.UpdateStatus(ctx, b.ID, model.BackupStatusFailed, "upload failed"); err != nil {
		t.Fatalf("update status with error: %v", err)
	}
	got, _ = bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.ErrorMessage != "upload failed" {
		t.Errorf("error_message = %q, want %q", got.ErrorMessage, "upload failed")
	}
}

func TestBackupUpdateCompleted(t *testing.T) {
	bs := setupBackupStore(t)
	ctx := context.Background()

	b, _ := bs.Create(ctx, "test.db.enc", "backups/test.db.enc", backupBase)
	if err := bs.UpdateCompleted(ctx, b.ID, 1024*1024, backupBase.Add(time.Minute)); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, _ := bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusCompleted)
	}
	if got.SizeBytes != 1024*1024 {
		t.Errorf("size_bytes = %d, want %d", got.SizeBytes, 1024*1024)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(backupBase.Add(time.Minute)) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, backupBase.Add(time.Minute))
	}
}

func TestBackupListOrderAndLimit(t *testing.T) {
	bs := setupBackupStore(t)
	ctx := context.Background()

	for i, name := range []string{"first", "second", "third"} {
		bs.Create(ctx, name+".db.enc", "backups/"+name+".db.enc", backupBase.Add(time.Duration(i)*time.Hour))
	}

	all, err := bs.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Filename != "third.db.enc" {
		t.Errorf("first entry = %q, want %q", all[0].Filename, "third.db.enc")
	}

	limited, err := bs.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupStore(t)
	ctx := context.Background()

	bs.Create(ctx, "old.db.enc", "backups/old.db.enc", backupBase)
	bs.Create(ctx, "new.db.enc", "backups/new.db.enc", backupBase.AddDate(0, 0, 10))

	keys, err := bs.DeleteOlderThan(ctx, backupBase.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Fatalf("deleted keys = %v, want [backups/old.db.enc]", keys)
	}

	remaining, _ := bs.List(ctx, 10)
	if len(remaining) != 1 {
		t.Fatalf("remaining = %d, want 1", len(remaining))
	}
	if remaining[0].Filename != "new.db.enc" {
		t.Errorf("remaining = %q, want %q", remaining[0].Filename, "new.db.enc")
	}
}

func TestBackupLatestCompleted(t *testing.T) {
	bs := setupBackupStore(t)
	ctx := context.Background()

	none, err := bs.LatestCompleted(ctx)
	if err != nil || none != nil {
		t.Fatalf("empty table = %v, %v", none, err)
	}

	b1, _ := bs.Create(ctx, "first.db.enc", "backups/first.db.enc", backupBase)
	bs.UpdateCompleted(ctx, b1.ID, 100, backupBase)
	later := backupBase.Add(time.Hour)
	b2, _ := bs.Create(ctx, "second.db.enc", "backups/second.db.enc", later)
	bs.UpdateCompleted(ctx, b2.ID, 200, later)
	b3, _ := bs.Create(ctx, "failed.db.enc", "backups/failed.db.enc", later)
	bs.UpdateStatus(ctx, b3.ID, model.BackupStatusFailed, "error")

	latest, err := bs.LatestCompleted(ctx)
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.Filename != "second.db.enc" {
		t.Errorf("latest = %+v, want second.db.enc", latest)
	}
}
