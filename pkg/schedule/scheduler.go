package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Task struct {
	id cron.EntryID

	Name         string
	InitialDelay time.Duration
	Interval     time.Duration
	// Exclusive tasks run on one node at a time when a Locker is configured.
	Exclusive bool
	Do        func(ctx context.Context) error
}

type Scheduler interface {
	AddTask(task *Task)
	GetTask(name string) *Task
	Start()
	Stop()
}

var (
	ErrTaskAdded = errors.New("task already added")
)

var _ Scheduler = &DefaultScheduler{}

type IntervalSchedule struct {
	once         sync.Once
	InitialDelay time.Duration
	Interval     time.Duration
}

func (s *IntervalSchedule) Next(t time.Time) time.Time {
	interval := s.Interval
	s.once.Do(func() {
		interval = s.InitialDelay
	})
	return t.Add(interval)
}

type DefaultScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	cron   *cron.Cron
	tasks  map[string]*Task
	mux    sync.RWMutex
	locker Locker
	log    *zap.SugaredLogger
}

type Option func(*DefaultScheduler)

func WithLocker(locker Locker) Option {
	return func(s *DefaultScheduler) {
		s.locker = locker
	}
}

func NewScheduler(log *zap.SugaredLogger, opts ...Option) Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DefaultScheduler{
		ctx:    ctx,
		cancel: cancel,
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		tasks:  make(map[string]*Task),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DefaultScheduler) AddTask(task *Task) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, exists := s.tasks[task.Name]; exists {
		panic(ErrTaskAdded)
	}

	schedule := &IntervalSchedule{
		InitialDelay: task.InitialDelay,
		Interval:     task.Interval,
	}
	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(task) }))

	task.id = entryID
	s.tasks[task.Name] = task
}

func (s *DefaultScheduler) run(task *Task) {
	ctx := s.ctx
	if task.Exclusive && s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "trackify:task:"+task.Name, task.Interval)
		if err != nil {
			s.log.Warnf("task %s: failed to acquire lock: %v", task.Name, err)
			return
		}
		if !ok {
			s.log.Debugf("task %s: running on another node", task.Name)
			return
		}
		defer unlock()
	}

	start := time.Now()
	if err := task.Do(ctx); err != nil {
		s.log.Errorf("task %s failed: %v", task.Name, err)
		return
	}
	s.log.Debugf("task %s finished in %s", task.Name, time.Since(start))
}

func (s *DefaultScheduler) GetTask(id string) *Task {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.tasks[id]
}

func (s *DefaultScheduler) Start() {
	s.cron.Start()
}

func (s *DefaultScheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}
