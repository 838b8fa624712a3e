package queue

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task is the unit of work executed under a room's serialization point.
type Task func(ctx context.Context) error

const (
	itemQueued int32 = iota
	itemRunning
	itemDone
	itemCancelled
)

type item struct {
	entry *Entry
	task  Task
	done  chan error
	state atomic.Int32
	seq   uint64
}

// itemHeap orders items by priority (higher first), then arrival order.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].entry.Priority != h[j].entry.Priority {
		return h[i].entry.Priority > h[j].entry.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

type roomQueue struct {
	mu      sync.Mutex
	items   itemHeap
	running bool
}

// Serializer guarantees that tasks targeting the same room run one at a
// time, in priority order with FIFO tie-break, while tasks for different
// rooms proceed concurrently. It is the mechanism behind the inventory
// ledger's single-writer-per-room precondition.
//
// Each submission is mirrored to a persisted Entry so queue behavior stays
// visible for audit: pending on arrival, processing when picked up, then
// completed or failed with the task's error message.
type Serializer struct {
	repo   EntryRepository
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[uuid.UUID]*roomQueue
	seq   atomic.Uint64
	wg    sync.WaitGroup
}

// NewSerializer creates a per-room booking serializer.
func NewSerializer(repo EntryRepository, logger *zap.Logger) *Serializer {
	return &Serializer{
		repo:   repo,
		logger: logger,
		rooms:  make(map[uuid.UUID]*roomQueue),
	}
}

// Submit queues the task for its room and blocks until the task resolves or
// ctx is cancelled. A cancellation that lands before the task starts removes
// it from consideration and marks the entry failed; once the task is
// running, Submit waits it out so the caller never observes a half-applied
// booking.
func (s *Serializer) Submit(ctx context.Context, guestID, roomID uuid.UUID, payload string, priority int, task Task) error {
	entry := NewEntry(guestID, roomID, payload, priority)
	if err := s.repo.Save(ctx, entry); err != nil {
		return err
	}

	it := &item{
		entry: entry,
		task:  task,
		done:  make(chan error, 1),
		seq:   s.seq.Add(1),
	}

	rq := s.roomQueue(roomID)
	rq.mu.Lock()
	heap.Push(&rq.items, it)
	if !rq.running {
		rq.running = true
		s.wg.Add(1)
		go s.drain(rq, roomID)
	}
	rq.mu.Unlock()

	select {
	case err := <-it.done:
		return err
	case <-ctx.Done():
		if it.state.CompareAndSwap(itemQueued, itemCancelled) {
			s.finishEntry(entry, EntryFailed, "cancelled while queued")
			return ctx.Err()
		}
		// Already running; wait for the outcome.
		return <-it.done
	}
}

// PendingByRoom returns the persisted queue history for a room.
func (s *Serializer) PendingByRoom(ctx context.Context, roomID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListByRoom(ctx, roomID)
}

// Wait blocks until all in-flight room workers have drained. Used during
// shutdown and in tests.
func (s *Serializer) Wait() {
	s.wg.Wait()
}

func (s *Serializer) roomQueue(roomID uuid.UUID) *roomQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.rooms[roomID]
	if !ok {
		rq = &roomQueue{}
		s.rooms[roomID] = rq
	}
	return rq
}

// drain is the single worker for one room. It exits when the room's heap is
// empty; the next Submit restarts it.
func (s *Serializer) drain(rq *roomQueue, roomID uuid.UUID) {
	defer s.wg.Done()
	for {
		rq.mu.Lock()
		if rq.items.Len() == 0 {
			rq.running = false
			rq.mu.Unlock()
			return
		}
		it := heap.Pop(&rq.items).(*item)
		rq.mu.Unlock()

		if !it.state.CompareAndSwap(itemQueued, itemRunning) {
			continue // cancelled while queued
		}

		s.markProcessing(it.entry)
		err := it.task(context.Background())
		it.state.Store(itemDone)

		if err != nil {
			s.finishEntry(it.entry, EntryFailed, err.Error())
		} else {
			s.finishEntry(it.entry, EntryCompleted, "")
		}
		it.done <- err
	}
}

func (s *Serializer) markProcessing(e *Entry) {
	e.Status = EntryProcessing
	if err := s.repo.Update(context.Background(), e); err != nil {
		s.logger.Warn("failed to mark queue entry processing",
			zap.String("entry_id", e.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Serializer) finishEntry(e *Entry, status EntryStatus, errMsg string) {
	now := time.Now().UTC()
	e.Status = status
	e.ErrorMessage = errMsg
	e.ProcessedAt = &now
	if err := s.repo.Update(context.Background(), e); err != nil {
		s.logger.Warn("failed to finalize queue entry",
			zap.String("entry_id", e.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
