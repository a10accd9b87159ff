package model

import "time"

// FileRecord describes one file inside one snapshot. RelativePath is relative
// to both the source root and the snapshot directory and is unique within a
// snapshot. Checksum is always computed from the bytes that were actually read
// at copy time, never trusted from prior metadata.
type FileRecord struct {
	RelativePath string    `json:"relative_path"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
	Checksum     string    `json:"checksum"` // SHA-256, lowercase hex
}

// Snapshot is one completed backup set. Name doubles as the on-disk directory
// name under the backup root and sorts in creation order. A snapshot is never
// mutated after completion; the space manager may delete it whole.
type Snapshot struct {
	Name           string       `json:"name"`
	CreatedAt      time.Time    `json:"created_at"`
	Files          []FileRecord `json:"files"`
	TotalSizeBytes int64        `json:"total_size_bytes"`
}

// IssueKind classifies an integrity validation finding.
type IssueKind string

const (
	// IssueMissing means a recorded file no longer exists on disk.
	IssueMissing IssueKind = "missing"
	// IssueChecksumMismatch means the stored bytes no longer hash to the
	// recorded checksum.
	IssueChecksumMismatch IssueKind = "checksum_mismatch"
)

// Issue is one integrity validation finding.
type Issue struct {
	SnapshotName string
	RelativePath string
	Kind         IssueKind
}

// Path returns the issue's location relative to the backup root.
func (i Issue) Path() string {
	return i.SnapshotName + "/" + i.RelativePath
}
