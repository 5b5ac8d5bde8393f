package entity

import (
	"fmt"
	"time"
)

// ArchiveTimestampLayout is the archive's canonical capture timestamp format,
// YYYYMMDDhhmmss.
const ArchiveTimestampLayout = "20060102150405"

// SnapshotID uniquely identifies an archived capture: the archive's own
// capture timestamp together with the original (un-wrapped) URL.
type SnapshotID struct {
	Timestamp time.Time
	Original  string
}

// URL builds the wayback machine snapshot-retrieval URL for this capture.
func (s SnapshotID) URL() string {
	return fmt.Sprintf("http://web.archive.org/web/%s/%s", s.Timestamp.UTC().Format(ArchiveTimestampLayout), s.Original)
}

// ParseArchiveTimestamp parses a CDX-format timestamp string.
func ParseArchiveTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(ArchiveTimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse archive timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Snapshot is the raw text body of one archived capture.
type Snapshot struct {
	ID   SnapshotID
	Text string
}
