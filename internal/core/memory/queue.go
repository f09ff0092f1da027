package memory

import "context"

// Queue is a buffered channel TaskQueue for single-process deployments.
type Queue struct {
	items chan string
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{items: make(chan string, size)}
}

func (q *Queue) Push(ctx context.Context, taskID string) error {
	select {
	case q.items <- taskID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Pop(ctx context.Context) (string, error) {
	select {
	case id := <-q.items:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.items)
}
