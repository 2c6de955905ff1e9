// Package backup takes encrypted snapshots of the basket store and keeps
// them in S3-compatible object storage.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

// ErrDisabled is returned when S3 or the passphrase is not configured.
var ErrDisabled = errors.New("backups are not configured")

// ErrNotReady is returned when downloading a backup that never finished
// uploading.
var ErrNotReady = errors.New("backup is not available")

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3            S3Config
	Passphrase    string
	ScheduleHour  int // UTC hour of the daily backup, -1 for none
	RetentionDays int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager runs encrypted backups on demand and on a daily schedule.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger

	db          *sql.DB
	backupStore *store.BackupStore
	client      s3Client
	now         func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:         cfg,
		db:          db,
		backupStore: bs,
		callback:    callback,
		logger:      logger,
		status:      Status{State: StateDisabled},
		now:         func() time.Time { return time.Now().UTC() },
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. It does nothing when backups are
// disabled or no schedule hour is set.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.cfg.ScheduleHour < 0 {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("backup schedule started", "hour_utc", m.cfg.ScheduleHour)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop ends the schedule loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now()
	if now.Hour() != m.cfg.ScheduleHour || now.Minute() != 0 {
		return
	}
	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow snapshots, encrypts and uploads the store, returning the backup
// record ID.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return 0, ErrDisabled
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	started := m.now()
	filename := fmt.Sprintf("basket-%s.db.enc", started.Format("2006-01-02T150405Z"))
	objectKey := "backups/" + filename

	record, err := m.backupStore.Create(ctx, filename, objectKey, started)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, client, bucket, record)
	if err != nil {
		if uerr := m.backupStore.UpdateStatus(ctx, record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "backup_id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, err
	}

	finished := m.now()
	if err := m.backupStore.UpdateCompleted(ctx, record.ID, size, finished); err != nil {
		return 0, err
	}

	m.setStatus(Status{State: StateIdle, LastBackup: &finished})
	m.logger.Info("backup completed", "backup_id", record.ID, "key", objectKey, "size_bytes", size)
	return record.ID, nil
}

func (m *Manager) upload(ctx context.Context, client s3Client, bucket string, record *model.Backup) (int64, error) {
	if err := m.backupStore.UpdateStatus(ctx, record.ID, model.BackupStatusUploading, ""); err != nil {
		return 0, err
	}

	tmpDir, err := os.MkdirTemp("", "basket-backup-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "basket.db")
	encFile := filepath.Join(tmpDir, record.Filename)

	// VACUUM INTO writes a consistent copy including WAL contents.
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return 0, fmt.Errorf("snapshot database: %w", err)
	}

	if err := EncryptFile(snapshot, encFile, m.cfg.Passphrase); err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	f, err := os.Open(encFile)
	if err != nil {
		return 0, fmt.Errorf("open encrypted file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat encrypted file: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(record.ObjectKey),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return stat.Size(), nil
}

// Download streams an encrypted backup from S3. Returns a nil reader when
// the backup record does not exist and ErrNotReady unless it completed.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, *model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, nil, ErrDisabled
	}

	record, err := m.backupStore.GetByID(ctx, backupID)
	if err != nil || record == nil {
		return nil, nil, err
	}
	if !record.Available() {
		return nil, record, fmt.Errorf("%w: status %s", ErrNotReady, record.Status)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record, nil
}

// Cleanup deletes backups older than the retention period, both the
// records and the stored objects.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil
	}

	retention := m.cfg.RetentionDays
	if retention <= 0 {
		retention = 30
	}
	before := m.now().AddDate(0, 0, -retention)
	keys, err := m.backupStore.DeleteOlderThan(ctx, before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}
	return nil
}

// List returns the most recent backup records.
func (m *Manager) List(ctx context.Context, limit int) ([]model.Backup, error) {
	return m.backupStore.List(ctx, limit)
}
