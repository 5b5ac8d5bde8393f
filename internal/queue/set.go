package queue

import "sync"

// Set is a bounded set of FIFO channels, one per pipeline stage, plus a
// shared WaitGroup that lets a caller block until every job submitted to the
// set -- and every job those jobs went on to emit -- has been marked done.
// This is the channel-based analogue of asyncio.Queue.join(): every Put is
// balanced by exactly one Done, called once the job (and everything it
// spawned) has finished.
type Set struct {
	Discover chan DiscoverJob
	Fetch    chan FetchJob
	Parse    chan ParseJob
	Store    chan StoreJob

	wg sync.WaitGroup
}

// DefaultCapacity is the per-stage channel buffer size. It only needs to
// absorb one tick's worth of Discover jobs without blocking the watchdog.
const DefaultCapacity = 256

// NewSet allocates a Set with buffered channels of the given per-stage
// capacity. A capacity of 0 falls back to DefaultCapacity.
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{
		Discover: make(chan DiscoverJob, capacity),
		Fetch:    make(chan FetchJob, capacity),
		Parse:    make(chan ParseJob, capacity),
		Store:    make(chan StoreJob, capacity),
	}
}

// PutDiscover enqueues a DiscoverJob and registers it with the WaitGroup.
func (s *Set) PutDiscover(j DiscoverJob) {
	s.wg.Add(1)
	s.Discover <- j
}

// PutFetch enqueues a FetchJob and registers it with the WaitGroup.
func (s *Set) PutFetch(j FetchJob) {
	s.wg.Add(1)
	s.Fetch <- j
}

// PutParse enqueues a ParseJob and registers it with the WaitGroup.
func (s *Set) PutParse(j ParseJob) {
	s.wg.Add(1)
	s.Parse <- j
}

// PutStore enqueues a StoreJob and registers it with the WaitGroup.
func (s *Set) PutStore(j StoreJob) {
	s.wg.Add(1)
	s.Store <- j
}

// Done marks one previously-Put job as finished, whether or not it produced
// successor jobs. Workers call this exactly once per dequeued job.
func (s *Set) Done() {
	s.wg.Done()
}

// Join blocks until every job put onto the set, and every successor job it
// caused to be put, has been marked Done.
func (s *Set) Join() {
	s.wg.Wait()
}

// Close closes every stage channel. Only safe to call after Join has
// returned, so no worker is still attempting to send.
func (s *Set) Close() {
	close(s.Discover)
	close(s.Fetch)
	close(s.Parse)
	close(s.Store)
}
