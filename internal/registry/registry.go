// Package registry holds the in-process map of in-flight tasks, keyed by
// conversation ID. It is the only component allowed to mutate a task entry;
// everything else works on copies.
package registry

import (
	"errors"
	"sync"

	"github.com/yamagen/frontdesk/pkg/models"
)

var (
	// ErrConflict is returned by Create when the conversation already has an
	// active task. Replacement requires an explicit CreateOrReplace call.
	ErrConflict = errors.New("task already active for conversation")
	// ErrNotFound is returned when no task exists for the conversation.
	ErrNotFound = errors.New("no active task for conversation")
)

// Registry is a concurrency-safe map of active tasks. A single mutex guards
// the whole map; mutators run under it so two concurrent updates on the same
// conversation serialize instead of interleaving partial writes.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]models.Task
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tasks: make(map[string]models.Task)}
}

// Create adds a task for its conversation ID. It fails with ErrConflict if an
// entry already exists, leaving the existing entry untouched.
func (r *Registry) Create(task models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ConversationID]; ok {
		return ErrConflict
	}
	r.tasks[task.ConversationID] = task.Clone()
	return nil
}

// CreateOrReplace adds a task, replacing any existing entry for the same
// conversation. Callers use this only when the replacement policy is explicit.
func (r *Registry) CreateOrReplace(task models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ConversationID] = task.Clone()
}

// Get returns a copy of the task for the conversation, or ErrNotFound.
func (r *Registry) Get(conversationID string) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[conversationID]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	return task.Clone(), nil
}

// Update applies the mutator to the task under the registry lock. The mutator
// sees a copy; the entry is only replaced if the mutator returns nil, so a
// failed update never leaves a partially written task behind.
func (r *Registry) Update(conversationID string, mutate func(*models.Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[conversationID]
	if !ok {
		return ErrNotFound
	}

	working := task.Clone()
	if err := mutate(&working); err != nil {
		return err
	}
	r.tasks[conversationID] = working
	return nil
}

// Delete removes the task for the conversation. Deleting a missing entry is
// a no-op.
func (r *Registry) Delete(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, conversationID)
}

// Active returns copies of all in-flight tasks.
func (r *Registry) Active() []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task.Clone())
	}
	return out
}

// Len returns the number of active tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
