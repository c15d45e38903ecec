package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"groupwarden/entity"
	"groupwarden/lib/sl"
)

// Handler executes one fired task. The payload is the opaque string the
// caller stored when scheduling.
type Handler func(payload string)

// Store is the slice of the database layer the scheduler needs to make
// its timers survive restarts.
type Store interface {
	CreateTask(t *entity.ScheduledTask) error
	TaskById(id string) (*entity.ScheduledTask, error)
	CancelTask(id string) error
	CompleteTask(id string) error
	PendingTasks() ([]*entity.ScheduledTask, error)
}

// Scheduler arms one-shot timers backed by scheduled_tasks rows. A row
// is the source of truth: cancellation flips its flag, and the fire-time
// callback re-reads the row so a cancel always wins even if the in-memory
// timer could not be removed.
type Scheduler struct {
	sched    gocron.Scheduler
	store    Store
	log      *slog.Logger
	handlers map[string]Handler
	jobs     map[string]uuid.UUID
	mu       sync.Mutex
}

func New(store Store, log *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		sched:    sched,
		store:    store,
		log:      log.With(sl.Module("internal.scheduler")),
		handlers: make(map[string]Handler),
		jobs:     make(map[string]uuid.UUID),
	}, nil
}

// Register binds a handler to a task kind. Must be called before Start
// so restart re-arming finds every kind it loads.
func (s *Scheduler) Register(kind string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Start re-arms every pending row and begins firing. Overdue tasks run
// right away.
func (s *Scheduler) Start() error {
	pending, err := s.store.PendingTasks()
	if err != nil {
		return fmt.Errorf("load pending tasks: %w", err)
	}
	now := time.Now()
	for _, t := range pending {
		runAt := t.RunAt
		if runAt.Before(now) {
			runAt = now.Add(time.Second)
		}
		if err = s.armJob(t.ID, t.Kind, runAt); err != nil {
			s.log.Error("re-arm task", slog.String("task", t.ID), sl.Err(err))
		}
	}
	s.sched.Start()
	if len(pending) > 0 {
		s.log.Info("re-armed pending tasks", slog.Int("count", len(pending)))
	}
	return nil
}

func (s *Scheduler) Stop() {
	_ = s.sched.Shutdown()
}

// RunOnce schedules a one-shot task and returns its id for later
// cancellation. The row is written before the timer is armed.
func (s *Scheduler) RunOnce(kind, payload string, delay time.Duration) (string, error) {
	runAt := time.Now().Add(delay)
	task := &entity.ScheduledTask{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: payload,
		RunAt:   runAt,
	}
	if err := s.store.CreateTask(task); err != nil {
		return "", fmt.Errorf("persist task: %w", err)
	}
	if err := s.armJob(task.ID, kind, runAt); err != nil {
		return "", err
	}
	return task.ID, nil
}

// Cancel marks the row cancelled and drops the in-memory timer if one
// exists. Safe to call for already-fired or unknown ids.
func (s *Scheduler) Cancel(id string) error {
	if err := s.store.CancelTask(id); err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	s.mu.Lock()
	jobId, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()
	if ok {
		_ = s.sched.RemoveJob(jobId)
	}
	return nil
}

// Every runs fn on a fixed interval; used for periodic maintenance
// sweeps that need no durable row.
func (s *Scheduler) Every(interval time.Duration, fn func()) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
	)
	if err != nil {
		return fmt.Errorf("schedule periodic job: %w", err)
	}
	return nil
}

func (s *Scheduler) armJob(taskId, kind string, runAt time.Time) error {
	job, err := s.sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(runAt)),
		gocron.NewTask(func() { s.fire(taskId) }),
	)
	if err != nil {
		return fmt.Errorf("schedule task %s: %w", kind, err)
	}
	s.mu.Lock()
	s.jobs[taskId] = job.ID()
	s.mu.Unlock()
	return nil
}

// fire re-reads the row before running: a task cancelled after its timer
// was armed is a silent no-op.
func (s *Scheduler) fire(taskId string) {
	s.mu.Lock()
	delete(s.jobs, taskId)
	s.mu.Unlock()

	task, err := s.store.TaskById(taskId)
	if err != nil {
		s.log.Error("load fired task", slog.String("task", taskId), sl.Err(err))
		return
	}
	if task == nil || task.Cancelled || task.Completed {
		return
	}

	s.mu.Lock()
	handler, ok := s.handlers[task.Kind]
	s.mu.Unlock()
	if !ok {
		s.log.Error("no handler for task kind", slog.String("kind", task.Kind))
		return
	}

	handler(task.Payload)

	if err = s.store.CompleteTask(taskId); err != nil {
		s.log.Error("complete task", slog.String("task", taskId), sl.Err(err))
	}
}
