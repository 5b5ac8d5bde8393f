// Package queue implements the typed, in-memory job queues that carry work
// between pipeline stages: Discover -> Fetch -> Parse -> Store. Each job type
// gets its own FIFO channel-backed queue; a Set tracks in-flight work so
// callers can block until every queued and derived job has drained, mirroring
// the asyncio.Queue.join() semantics of the system this was ported from.
package queue

import (
	"time"

	"github.com/google/uuid"

	"media-observer/internal/domain/entity"
)

// Job is the common identity shared by every job type. Jobs are immutable
// once created.
type Job interface {
	JobID() uuid.UUID
}

type base struct {
	id uuid.UUID
}

// JobID returns the job's unique identifier, generated at creation time.
func (b base) JobID() uuid.UUID { return b.id }

func newBase() base { return base{id: uuid.New()} }

// DiscoverJob asks the Discover stage to locate the archive capture closest
// to Instant for Site, then enqueue a FetchJob.
type DiscoverJob struct {
	base
	Site    entity.Site
	Instant time.Time
}

// NewDiscoverJob constructs a DiscoverJob with a fresh id.
func NewDiscoverJob(site entity.Site, instant time.Time) DiscoverJob {
	return DiscoverJob{base: newBase(), Site: site, Instant: instant}
}

// FetchJob asks the Fetch stage to retrieve the HTML body of a located
// snapshot.
type FetchJob struct {
	base
	Site     entity.Site
	SnapID   entity.SnapshotID
	Instant  time.Time
}

// NewFetchJob constructs a FetchJob, preserving the originating job's id so
// diagnostics can trace a (site, instant) chain end to end.
func NewFetchJob(id uuid.UUID, site entity.Site, snapID entity.SnapshotID, instant time.Time) FetchJob {
	return FetchJob{base: base{id: id}, Site: site, SnapID: snapID, Instant: instant}
}

// ParseJob asks the Parse stage to extract a FrontPage from a fetched
// snapshot body.
type ParseJob struct {
	base
	Site     entity.Site
	Snapshot entity.Snapshot
	Instant  time.Time
}

// NewParseJob constructs a ParseJob, preserving the originating job's id.
func NewParseJob(id uuid.UUID, site entity.Site, snapshot entity.Snapshot, instant time.Time) ParseJob {
	return ParseJob{base: base{id: id}, Site: site, Snapshot: snapshot, Instant: instant}
}

// StoreJob asks the Store stage to persist a parsed front page. It is
// terminal: no successor job is ever emitted for it.
type StoreJob struct {
	base
	Site    entity.Site
	Page    entity.FrontPage
	Instant time.Time
}

// NewStoreJob constructs a StoreJob, preserving the originating job's id.
func NewStoreJob(id uuid.UUID, site entity.Site, page entity.FrontPage, instant time.Time) StoreJob {
	return StoreJob{base: base{id: id}, Site: site, Page: page, Instant: instant}
}
