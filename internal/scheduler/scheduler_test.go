package scheduler

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwarden/entity"
)

type fakeTaskStore struct {
	tasks map[string]*entity.ScheduledTask
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*entity.ScheduledTask)}
}

func (f *fakeTaskStore) CreateTask(t *entity.ScheduledTask) error {
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskStore) TaskById(id string) (*entity.ScheduledTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) CancelTask(id string) error {
	if t, ok := f.tasks[id]; ok {
		t.Cancelled = true
	}
	return nil
}

func (f *fakeTaskStore) CompleteTask(id string) error {
	if t, ok := f.tasks[id]; ok {
		t.Completed = true
	}
	return nil
}

func (f *fakeTaskStore) PendingTasks() ([]*entity.ScheduledTask, error) {
	var pending []*entity.ScheduledTask
	for _, t := range f.tasks {
		if !t.Cancelled && !t.Completed {
			cp := *t
			pending = append(pending, &cp)
		}
	}
	return pending, nil
}

func newTestScheduler(t *testing.T, store Store) *Scheduler {
	t.Helper()
	s, err := New(store, slog.Default())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestRunOncePersistsRow(t *testing.T) {
	store := newFakeTaskStore()
	s := newTestScheduler(t, store)
	s.Register("ping", func(string) {})

	id, err := s.RunOnce("ping", `{"n":1}`, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	row := store.tasks[id]
	require.NotNil(t, row)
	assert.Equal(t, "ping", row.Kind)
	assert.Equal(t, `{"n":1}`, row.Payload)
	assert.False(t, row.Cancelled)
	assert.False(t, row.Completed)
}

func TestCancelFlipsRow(t *testing.T) {
	store := newFakeTaskStore()
	s := newTestScheduler(t, store)
	s.Register("ping", func(string) {})

	id, err := s.RunOnce("ping", "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.Cancel(id))
	assert.True(t, store.tasks[id].Cancelled)

	// repeat cancels and unknown ids are no-ops
	assert.NoError(t, s.Cancel(id))
	assert.NoError(t, s.Cancel("missing"))
}

func TestFireRunsHandlerAndCompletes(t *testing.T) {
	store := newFakeTaskStore()
	s := newTestScheduler(t, store)

	var got string
	s.Register("ping", func(payload string) { got = payload })

	id, err := s.RunOnce("ping", "hello", time.Hour)
	require.NoError(t, err)

	s.fire(id)

	assert.Equal(t, "hello", got)
	assert.True(t, store.tasks[id].Completed)
}

func TestFireSkipsCancelledTask(t *testing.T) {
	store := newFakeTaskStore()
	s := newTestScheduler(t, store)

	called := false
	s.Register("ping", func(string) { called = true })

	id, err := s.RunOnce("ping", "", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Cancel(id))

	s.fire(id)

	assert.False(t, called)
	assert.False(t, store.tasks[id].Completed)
}

func TestFireSkipsMissingTask(t *testing.T) {
	store := newFakeTaskStore()
	s := newTestScheduler(t, store)
	called := false
	s.Register("ping", func(string) { called = true })

	s.fire("missing")

	assert.False(t, called)
}

func TestStartRearmsPendingTasks(t *testing.T) {
	store := newFakeTaskStore()
	store.tasks["t1"] = &entity.ScheduledTask{
		ID:    "t1",
		Kind:  "ping",
		RunAt: time.Now().Add(-time.Minute),
	}
	store.tasks["t2"] = &entity.ScheduledTask{
		ID:        "t2",
		Kind:      "ping",
		RunAt:     time.Now().Add(time.Hour),
		Completed: true,
	}

	s := newTestScheduler(t, store)
	s.Register("ping", func(string) {})
	require.NoError(t, s.Start())

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Contains(t, s.jobs, "t1")
	assert.NotContains(t, s.jobs, "t2")
}
