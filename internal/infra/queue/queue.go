package queue

import (
	"container/heap"
	"context"
	"sync"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/infra/metrics"
)

// Category is the logical queue a task type maps onto. Composite tasks
// ride the text queue.
func Category(typ model.TaskType) model.TaskType {
	if typ == model.TaskTypeComposite {
		return model.TaskTypeText
	}
	return typ
}

var categories = []model.TaskType{
	model.TaskTypeText,
	model.TaskTypeImage,
	model.TaskTypeVideo,
	model.TaskTypeAudio,
	model.TaskTypeDocument,
	model.TaskTypeCode,
}

type item struct {
	task *model.Task
	prio model.TaskPriority
	seq  uint64 // FIFO tiebreak within one priority
}

type prioHeap []*item

func (h prioHeap) Len() int { return len(h) }
func (h prioHeap) Less(i, j int) bool {
	if h[i].prio != h[j].prio {
		return h[i].prio > h[j].prio
	}
	return h[i].seq < h[j].seq
}
func (h prioHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *prioHeap) Push(x any)        { *h = append(*h, x.(*item)) }
func (h *prioHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

type categoryQueue struct {
	mu       sync.Mutex
	items    prioHeap
	capacity int
	seq      uint64
	notify   chan struct{}
	name     string
}

func newCategoryQueue(name string, capacity int) *categoryQueue {
	return &categoryQueue{capacity: capacity, notify: make(chan struct{}, 1), name: name}
}

func (q *categoryQueue) push(t *model.Task) error {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		metrics.IncQueueDropped(q.name)
		return domain.ErrQueueFull
	}
	q.seq++
	heap.Push(&q.items, &item{task: t, prio: t.Priority, seq: q.seq})
	depth := len(q.items)
	q.mu.Unlock()

	metrics.SetQueueDepth(q.name, depth)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until an item is available or ctx is done.
func (q *categoryQueue) pop(ctx context.Context) (*model.Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := heap.Pop(&q.items).(*item)
			depth := len(q.items)
			q.mu.Unlock()
			metrics.SetQueueDepth(q.name, depth)
			return it.task, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *categoryQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Manager owns one priority queue per task category.
type Manager struct {
	queues map[model.TaskType]*categoryQueue
}

func NewManager(capacityPerCategory int) *Manager {
	m := &Manager{queues: make(map[model.TaskType]*categoryQueue, len(categories))}
	for _, c := range categories {
		m.queues[c] = newCategoryQueue(string(c), capacityPerCategory)
	}
	return m
}

// Enqueue implements usecase.TaskQueue.
func (m *Manager) Enqueue(_ context.Context, t *model.Task) error {
	q, ok := m.queues[Category(t.Type)]
	if !ok {
		return domain.ErrUnknownTaskType
	}
	return q.push(t)
}

func (m *Manager) Depth(typ model.TaskType) int {
	if q, ok := m.queues[Category(typ)]; ok {
		return q.depth()
	}
	return 0
}
