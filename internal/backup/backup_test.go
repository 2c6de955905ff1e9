package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

var enabledConfig = Config{
	S3:            S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	Passphrase:    "correct horse battery staple",
	ScheduleHour:  -1,
	RetentionDays: 7,
}

func setupManager(t *testing.T, cb StatusCallback) (*Manager, *mockS3Client, *store.BackupStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	m := NewManager(enabledConfig, db, bs, cb, slog.Default())
	mock := newMockS3()
	m.client = mock
	return m, mock, bs
}

func TestManagerStateLifecycle(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	// S3 without a passphrase cannot encrypt.
	noPass := enabledConfig
	noPass.Passphrase = ""
	if got := NewManager(noPass, nil, nil, nil, slog.Default()).Status().State; got != StateDisabled {
		t.Errorf("state without passphrase = %q, want %q", got, StateDisabled)
	}

	if got := NewManager(enabledConfig, nil, nil, nil, slog.Default()).Status().State; got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestRunNowDisabled(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	var mu sync.Mutex
	var states []State
	m, mock, bs := setupManager(t, func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	ctx := context.Background()

	id, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	record, err := bs.GetByID(ctx, id)
	if err != nil || record == nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	data, ok := mock.objects[record.ObjectKey]
	if !ok {
		t.Fatalf("object %q not uploaded", record.ObjectKey)
	}
	if int64(len(data)) != record.SizeBytes {
		t.Errorf("size_bytes = %d, object is %d bytes", record.SizeBytes, len(data))
	}

	// The object decrypts to a SQLite database holding the schema.
	dir := t.TempDir()
	enc := filepath.Join(dir, "backup.db.enc")
	dec := filepath.Join(dir, "backup.db")
	if err := os.WriteFile(enc, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := DecryptFile(enc, dec, enabledConfig.Passphrase); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, err := sql.Open("sqlite", dec)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var count int
	if err := restored.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if count != 10 {
		t.Errorf("restored categories = %d, want 10", count)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v, want [running idle]", states)
	}
	if m.Status().LastBackup == nil {
		t.Error("expected last backup time")
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, bs := setupManager(t, nil)
	mock.putErr = errors.New("bucket unreachable")
	ctx := context.Background()

	if _, err := m.RunNow(ctx); err == nil {
		t.Fatal("expected error")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	records, _ := bs.List(ctx, 10)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want failed", records[0].Status)
	}
	if !strings.Contains(records[0].ErrorMessage, "bucket unreachable") {
		t.Errorf("error_message = %q", records[0].ErrorMessage)
	}
}

func TestDownload(t *testing.T) {
	m, _, _ := setupManager(t, nil)
	ctx := context.Background()

	id, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	body, record, err := m.Download(ctx, id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if int64(len(data)) != record.SizeBytes {
		t.Errorf("downloaded %d bytes, want %d", len(data), record.SizeBytes)
	}

	missing, rec, err := m.Download(ctx, 999)
	if err != nil || missing != nil || rec != nil {
		t.Errorf("missing backup = %v, %v, %v", missing, rec, err)
	}
}

func TestDownloadRejectsFailedBackup(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	ctx := context.Background()

	mock.putErr = errors.New("bucket unreachable")
	if _, err := m.RunNow(ctx); err == nil {
		t.Fatal("expected upload error")
	}
	records, err := m.List(ctx, 1)
	if err != nil || len(records) != 1 {
		t.Fatalf("list = %v, %v", records, err)
	}

	body, _, err := m.Download(ctx, records[0].ID)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
	if body != nil {
		t.Error("expected no body for a failed backup")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	m, mock, bs := setupManager(t, nil)
	ctx := context.Background()

	start := time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }
	if _, err := m.RunNow(ctx); err != nil {
		t.Fatalf("old backup: %v", err)
	}
	m.now = func() time.Time { return start.AddDate(0, 0, 10) }
	if _, err := m.RunNow(ctx); err != nil {
		t.Fatalf("new backup: %v", err)
	}
	if len(mock.objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(mock.objects))
	}

	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(mock.objects) != 1 {
		t.Errorf("objects after cleanup = %d, want 1", len(mock.objects))
	}
	records, _ := bs.List(ctx, 10)
	if len(records) != 1 {
		t.Fatalf("records after cleanup = %d, want 1", len(records))
	}
	if want := start.AddDate(0, 0, 10); !records[0].CreatedAt.Equal(want) {
		t.Errorf("kept record created_at = %v, want %v", records[0].CreatedAt, want)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(enabledConfig, nil, nil, cb, slog.Default())
	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	cfg := enabledConfig
	cfg.ScheduleHour = 3
	m := NewManager(cfg, nil, nil, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerNoScheduleNoStart(t *testing.T) {
	for _, cfg := range []Config{{}, enabledConfig} {
		m := NewManager(cfg, nil, nil, nil, slog.Default())
		m.Start(context.Background())
		m.Stop()
		if m.done != nil {
			t.Error("schedule loop should not start")
		}
	}
}

func TestCheckScheduleRunsOnTheHour(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	m.cfg.ScheduleHour = 3
	ctx := context.Background()

	m.now = func() time.Time { return time.Date(2026, 10, 1, 3, 1, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	if len(mock.objects) != 0 {
		t.Fatalf("backup ran off schedule")
	}

	m.now = func() time.Time { return time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	if len(mock.objects) != 1 {
		t.Errorf("objects = %d, want 1", len(mock.objects))
	}
}
