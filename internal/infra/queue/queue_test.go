package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
)

func pendingTask(id string, typ model.TaskType, prio model.TaskPriority) *model.Task {
	return &model.Task{
		ID: id, UserID: "u1", Type: typ, Priority: prio,
		Status: model.TaskStatusPending, CreatedAt: time.Now(),
	}
}

func TestQueue_PopsByPriorityThenFIFO(t *testing.T) {
	m := NewManager(16)
	ctx := context.Background()

	// Interleave priorities; within one priority insertion order must hold.
	enqueue := []*model.Task{
		pendingTask("low-1", model.TaskTypeText, model.PriorityLow),
		pendingTask("normal-1", model.TaskTypeText, model.PriorityNormal),
		pendingTask("urgent-1", model.TaskTypeText, model.PriorityUrgent),
		pendingTask("normal-2", model.TaskTypeText, model.PriorityNormal),
		pendingTask("high-1", model.TaskTypeText, model.PriorityHigh),
		pendingTask("urgent-2", model.TaskTypeText, model.PriorityUrgent),
	}
	for _, task := range enqueue {
		if err := m.Enqueue(ctx, task); err != nil {
			t.Fatalf("Enqueue(%s): %v", task.ID, err)
		}
	}

	want := []string{"urgent-1", "urgent-2", "high-1", "normal-1", "normal-2", "low-1"}
	q := m.queues[model.TaskTypeText]
	for i, id := range want {
		got, err := q.pop(ctx)
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if got.ID != id {
			t.Fatalf("pop %d = %s, want %s", i, got.ID, id)
		}
	}
}

func TestQueue_CapacityRejectsWithQueueFull(t *testing.T) {
	m := NewManager(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("t-%d", i)
		if err := m.Enqueue(ctx, pendingTask(id, model.TaskTypeImage, model.PriorityNormal)); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}
	err := m.Enqueue(ctx, pendingTask("t-overflow", model.TaskTypeImage, model.PriorityUrgent))
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if got := m.Depth(model.TaskTypeImage); got != 2 {
		t.Fatalf("depth = %d, want 2", got)
	}
}

func TestQueue_CategoriesAreIndependent(t *testing.T) {
	m := NewManager(1)
	ctx := context.Background()

	if err := m.Enqueue(ctx, pendingTask("img", model.TaskTypeImage, model.PriorityNormal)); err != nil {
		t.Fatalf("image enqueue: %v", err)
	}
	// A full image queue must not reject video work.
	if err := m.Enqueue(ctx, pendingTask("vid", model.TaskTypeVideo, model.PriorityNormal)); err != nil {
		t.Fatalf("video enqueue: %v", err)
	}
}

func TestQueue_CompositeRidesTextQueue(t *testing.T) {
	m := NewManager(4)
	ctx := context.Background()

	if err := m.Enqueue(ctx, pendingTask("comp", model.TaskTypeComposite, model.PriorityNormal)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got := m.Depth(model.TaskTypeText); got != 1 {
		t.Fatalf("text depth = %d, want 1", got)
	}
}

func TestQueue_PopBlocksUntilPushOrCancel(t *testing.T) {
	m := NewManager(4)
	q := m.queues[model.TaskTypeText]

	got := make(chan *model.Task, 1)
	go func() {
		task, err := q.pop(context.Background())
		if err == nil {
			got <- task
		}
	}()

	time.Sleep(10 * time.Millisecond)
	if err := m.Enqueue(context.Background(), pendingTask("late", model.TaskTypeText, model.PriorityNormal)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case task := <-got:
		if task.ID != "late" {
			t.Fatalf("popped %s, want late", task.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.pop(ctx)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("pop err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not observe cancellation")
	}
}
