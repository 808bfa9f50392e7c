// Package jobmanager runs named housekeeping jobs on a duration or cron schedule.
package jobmanager

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/logging"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 15 * time.Second

// A JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

// JobManager owns a scheduler and the jobs registered on it.
type JobManager struct {
	logger    logging.Logger
	scheduler gocron.Scheduler

	cancelCtx  context.Context
	cancelFunc context.CancelFunc

	mu           sync.Mutex
	namesToUUIDs map[string]uuid.UUID
}

// New returns a stopped job manager.
func New(logger logging.Logger) (*JobManager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &JobManager{
		logger:       logger.Sublogger("job_manager"),
		scheduler:    scheduler,
		cancelCtx:    cancelCtx,
		cancelFunc:   cancelFunc,
		namesToUUIDs: map[string]uuid.UUID{},
	}, nil
}

// Add schedules fn under name. schedule is a Go duration ("30s") or a five field cron spec.
// A run still in progress when the next one is due pushes the next one back.
func (jm *JobManager) Add(name, schedule string, fn JobFunc) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if _, ok := jm.namesToUUIDs[name]; ok {
		return errors.Errorf("job %q already exists", name)
	}

	var jobType gocron.JobDefinition
	if d, err := time.ParseDuration(schedule); err == nil {
		if d <= 0 {
			return errors.Errorf("job %q: schedule must be positive", name)
		}
		jobType = gocron.DurationJob(d)
	} else {
		jobType = gocron.CronJob(schedule, false)
	}

	j, err := jm.scheduler.NewJob(
		jobType,
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(jm.cancelCtx, DefaultJobTimeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				jm.logger.Warnw("job failed", "job", name, "error", err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to schedule job %q", name)
	}
	jm.logger.Debugw("scheduled job", "job", name, "schedule", schedule, "id", j.ID())
	jm.namesToUUIDs[name] = j.ID()
	return nil
}

// Jobs lists the scheduled job names.
func (jm *JobManager) Jobs() []string {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	names := make([]string, 0, len(jm.namesToUUIDs))
	for name := range jm.namesToUUIDs {
		names = append(names, name)
	}
	return names
}

// Start begins running jobs.
func (jm *JobManager) Start() {
	jm.scheduler.Start()
}

// Shutdown cancels running jobs and stops the scheduler.
func (jm *JobManager) Shutdown() error {
	jm.cancelFunc()
	return jm.scheduler.Shutdown()
}
