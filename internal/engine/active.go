package engine

import (
	"context"
	"sync"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// run is one in-flight execution. Only the goroutine walking it touches ec,
// apart from the cancellation flag.
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ec       *domain.ExecutionContext
	workflow *domain.Workflow
	graph    *graph
	trigger  domain.TriggerSource
	attempt  int
}

// activeTable tracks in-flight runs by execution id. Entries are added before
// the execution record is inserted and removed once, by the run's own
// goroutine or by start when the insert is rejected.
type activeTable struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*run
}

func newActiveTable() *activeTable {
	return &activeTable{runs: make(map[uuid.UUID]*run)}
}

func (t *activeTable) add(r *run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[r.ec.ExecutionID] = r
}

func (t *activeTable) get(id uuid.UUID) (*run, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	return r, ok
}

func (t *activeTable) remove(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, id)
}

func (t *activeTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.runs)
}
