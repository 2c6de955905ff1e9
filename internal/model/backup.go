package model

import "time"

// BackupStatus tracks an encrypted snapshot from creation to upload.
type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup records one snapshot of the store in object storage.
type Backup struct {
	ID           int64        `json:"id"`
	Filename     string       `json:"filename"`
	ObjectKey    string       `json:"object_key"`
	SizeBytes    int64        `json:"size_bytes"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Available reports whether the object was fully uploaded and can be
// downloaded.
func (b Backup) Available() bool {
	return b.Status == BackupStatusCompleted
}
