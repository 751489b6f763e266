// Package tasklist is the client-side model of the user's task collection.
//
// The server stays the source of truth: every mutation takes effect locally
// only through the representation the server returns, never a local guess.
// Load replaces the whole collection, create prepends the returned task,
// toggle and update replace the matching entry, delete removes it only
// after the server confirmed. The collection never holds two tasks with
// the same id.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/taskdeck/taskdeck/internal/api"
)

// ErrEmptyTitle rejects a task draft before any network call.
var ErrEmptyTitle = errors.New("task title must not be empty")

// Service is the slice of the api client the store drives.
type Service interface {
	Tasks(ctx context.Context) ([]api.Task, error)
	TaskByID(ctx context.Context, id int64) (*api.Task, error)
	CreateTask(ctx context.Context, draft api.TaskDraft) (*api.Task, error)
	UpdateTask(ctx context.Context, id int64, patch api.TaskPatch) (*api.Task, error)
	ToggleTask(ctx context.Context, id int64) (*api.Task, error)
	DeleteTask(ctx context.Context, id int64) (string, error)
}

// StatusFilter narrows a listing to one completion state.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// ParseFilter maps a user-supplied status string to a filter.
func ParseFilter(s string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(s)) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterCompleted:
		return FilterCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q (want all, pending or completed)", s)
}

// NoticeKind tells the UI how to style a transient banner.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is the transient outcome of the latest operation. One slot,
// last write wins.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Store holds the in-memory task collection.
type Store struct {
	mu     sync.Mutex
	svc    Service
	tasks  []api.Task
	notice Notice
}

// NewStore returns an empty store backed by svc.
func NewStore(svc Service) *Store {
	return &Store{svc: svc}
}

// Load replaces the collection with the server's current list. On failure
// the previous collection stays untouched.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.svc.Tasks(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notice = Notice{NoticeError, err.Error()}
		return err
	}
	s.tasks = tasks
	s.notice = Notice{}
	return nil
}

// Create validates the draft, stores it server-side and prepends the
// returned task. The draft itself is never modified.
func (s *Store) Create(ctx context.Context, draft api.TaskDraft) (*api.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, ErrEmptyTitle
	}
	task, err := s.svc.CreateTask(ctx, draft)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notice = Notice{NoticeError, err.Error()}
		return nil, err
	}
	s.tasks = append([]api.Task{*task}, removeByID(s.tasks, task.ID)...)
	s.notice = Notice{NoticeSuccess, fmt.Sprintf("Added task #%d: %s", task.ID, task.Title)}
	return task, nil
}

// Toggle flips a task's completion state and adopts the server's
// representation. An unknown id leaves the collection unchanged.
func (s *Store) Toggle(ctx context.Context, id int64) (*api.Task, error) {
	task, err := s.svc.ToggleTask(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notice = Notice{NoticeError, err.Error()}
		return nil, err
	}
	s.replace(*task)
	if task.Completed {
		s.notice = Notice{NoticeSuccess, fmt.Sprintf("Marked #%d done", task.ID)}
	} else {
		s.notice = Notice{NoticeSuccess, fmt.Sprintf("Marked #%d not done", task.ID)}
	}
	return task, nil
}

// Update patches a task and adopts the server's representation.
func (s *Store) Update(ctx context.Context, id int64, patch api.TaskPatch) (*api.Task, error) {
	task, err := s.svc.UpdateTask(ctx, id, patch)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notice = Notice{NoticeError, err.Error()}
		return nil, err
	}
	s.replace(*task)
	s.notice = Notice{NoticeSuccess, fmt.Sprintf("Updated task #%d", task.ID)}
	return task, nil
}

// Delete removes a task. The local entry goes away only after the server
// confirmed the delete.
func (s *Store) Delete(ctx context.Context, id int64) error {
	msg, err := s.svc.DeleteTask(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notice = Notice{NoticeError, err.Error()}
		return err
	}
	s.tasks = removeByID(s.tasks, id)
	if msg == "" {
		msg = fmt.Sprintf("Task %d deleted", id)
	}
	s.notice = Notice{NoticeSuccess, msg}
	return nil
}

// Tasks returns a copy of the collection in display order.
func (s *Store) Tasks() []api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Filtered returns a copy narrowed to the given completion state.
func (s *Store) Filtered(f StatusFilter) []api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.Task
	for _, t := range s.tasks {
		switch f {
		case FilterPending:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Task looks up one task by id.
func (s *Store) Task(id int64) (api.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return api.Task{}, false
}

// Counts reports the collection size and how many tasks are done.
func (s *Store) Counts() (total, done int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Completed {
			done++
		}
	}
	return len(s.tasks), done
}

// Notice returns the latest transient banner.
func (s *Store) Notice() Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// ClearNotice resets the banner slot.
func (s *Store) ClearNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = Notice{}
}

// replace swaps the entry matching t's id, or appends when the id is not
// in the collection yet.
func (s *Store) replace(t api.Task) {
	for i := range s.tasks {
		if s.tasks[i].ID == t.ID {
			s.tasks[i] = t
			return
		}
	}
	s.tasks = append(s.tasks, t)
}

func removeByID(tasks []api.Task, id int64) []api.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
