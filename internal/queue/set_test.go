package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/queue"
)

func TestSet_JoinBlocksUntilAllJobsDone(t *testing.T) {
	set := queue.NewSet(4)
	site := entity.Site{ID: 1, Name: "le_monde"}

	set.PutDiscover(queue.NewDiscoverJob(site, time.Now()))
	set.PutDiscover(queue.NewDiscoverJob(site, time.Now()))

	done := make(chan struct{})
	go func() {
		set.Join()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Join returned before any job was marked done")
	case <-time.After(20 * time.Millisecond):
	}

	<-set.Discover
	set.Done()

	select {
	case <-done:
		t.Fatal("Join returned before the second job was marked done")
	case <-time.After(20 * time.Millisecond):
	}

	<-set.Discover
	set.Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join did not return after all jobs were marked done")
	}
}

func TestSet_SuccessorJobKeepsJoinOpen(t *testing.T) {
	set := queue.NewSet(4)
	site := entity.Site{ID: 1, Name: "le_monde"}

	set.PutDiscover(queue.NewDiscoverJob(site, time.Now()))

	done := make(chan struct{})
	go func() {
		set.Join()
		close(done)
	}()

	discoverJob := <-set.Discover
	set.PutFetch(queue.NewFetchJob(discoverJob.JobID(), site, entity.SnapshotID{}, discoverJob.Instant))
	set.Done()

	select {
	case <-done:
		t.Fatal("Join returned while the successor FetchJob was still pending")
	case <-time.After(20 * time.Millisecond):
	}

	<-set.Fetch
	set.Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join did not return after the successor job was marked done")
	}
}
