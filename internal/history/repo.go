// Package history keeps the latest score results of each record for the
// HTTP API.
package history

import (
	"propscore/internal/score"
	"propscore/internal/utils"
	"sync"
	"time"
)

// ResultsRepository is a thread-safe store of recent score results.
// Each record ID owns a ring buffer of fixed length. Records not updated for
// longer than the TTL are removed by a background sweep.
//
// Example:
//
//	repo := history.NewResultsRepository(10, 24*time.Hour)
//	go repo.Serve()
//	repo.Append(result)
type ResultsRepository struct {
	length int           // results kept per record
	ttl    time.Duration // idle time after which a record is dropped, 0 keeps forever

	results map[string]*utils.RingBuffer[score.Result]
	updates map[string]time.Time

	sweep time.Duration
	done  chan struct{}
	once  sync.Once
	mu    sync.RWMutex
}

// Append stores results under their record IDs.
func (rr *ResultsRepository) Append(results ...score.Result) {
	now := time.Now()
	for _, r := range results {
		rr.buffer(r.RecordID, now).Push(r)
	}
}

func (rr *ResultsRepository) buffer(id string, now time.Time) *utils.RingBuffer[score.Result] {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	buffer, found := rr.results[id]
	if !found {
		buffer = utils.NewRingBuffer[score.Result](rr.length)
		rr.results[id] = buffer
	}
	rr.updates[id] = now
	return buffer
}

// Get returns a copy of the results stored for id, oldest first, and false
// when there are none.
func (rr *ResultsRepository) Get(id string) ([]score.Result, bool) {
	rr.mu.RLock()
	buffer, found := rr.results[id]
	rr.mu.RUnlock()
	if !found {
		return nil, false
	}
	return buffer.ToSlice(), true
}

// Latest returns the newest result of each stakeholder stored for id, in
// order of first appearance.
func (rr *ResultsRepository) Latest(id string) ([]score.Result, bool) {
	rr.mu.RLock()
	buffer, found := rr.results[id]
	rr.mu.RUnlock()
	if !found {
		return nil, false
	}
	return buffer.LatestBy(func(r score.Result) string { return r.Stakeholder }), true
}

// Len returns the number of record IDs held.
func (rr *ResultsRepository) Len() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.results)
}

// Serve periodically drops records idle for longer than the TTL. It blocks
// until Stop is called and is meant to run in its own goroutine:
//
//	go repo.Serve()
func (rr *ResultsRepository) Serve() {
	if rr.ttl <= 0 {
		<-rr.done
		return
	}

	ticker := time.NewTicker(rr.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-rr.done:
			return
		case now := <-ticker.C:
			rr.expire(now)
		}
	}
}

// expire removes records whose last update is older than the TTL.
func (rr *ResultsRepository) expire(now time.Time) {
	var outdated []string

	rr.mu.RLock()
	for id, ts := range rr.updates {
		if now.Sub(ts) > rr.ttl {
			outdated = append(outdated, id)
		}
	}
	rr.mu.RUnlock()

	if len(outdated) == 0 {
		return
	}

	rr.mu.Lock()
	for _, id := range outdated {
		// re-check, the record may have been refreshed meanwhile
		if now.Sub(rr.updates[id]) > rr.ttl {
			delete(rr.results, id)
			delete(rr.updates, id)
		}
	}
	rr.mu.Unlock()
}

// Stop ends Serve. It is safe to call more than once and before Serve.
func (rr *ResultsRepository) Stop() {
	rr.once.Do(func() { close(rr.done) })
}

// NewResultsRepository creates a repository keeping length results per
// record; ttl of zero disables expiry. Call Serve to start expiry.
func NewResultsRepository(length int, ttl time.Duration) *ResultsRepository {
	if length <= 0 {
		length = 1
	}
	sweep := time.Minute
	if ttl > 0 && ttl < sweep {
		sweep = ttl
	}
	return &ResultsRepository{
		length:  length,
		ttl:     ttl,
		results: make(map[string]*utils.RingBuffer[score.Result]),
		updates: make(map[string]time.Time),
		sweep:   sweep,
		done:    make(chan struct{}),
	}
}
