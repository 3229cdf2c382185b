
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron expressions. A job whose previous tick is still
// running skips the new tick.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	log    *zap.SugaredLogger
	cancel context.CancelFunc
}

func New(log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{log: log.Named("scheduler")}
}

// Add registers j. Must be called before Start.
func (s *Scheduler) Add(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.jobs {
		if existing.Name == j.Name {
			return fmt.Errorf("scheduler: duplicate job name %q", j.Name)
		}
	}
	s.jobs = append(s.jobs, j)
	return nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(cron.WithParser(parser))

	for _, j := range s.jobs {
		job := j
		lock := &sync.Mutex{}
		_, err := s.cron.AddFunc(job.Schedule, func() {
			if !lock.TryLock() {
				s.log.Warnw("job still running, skipping tick", "job", job.Name)
				return
			}
			defer lock.Unlock()

			if err := job.Run(ctx); err != nil {
				s.log.Errorw("job failed", "job", job.Name, "err", err)
				return
			}
			s.log.Debugw("job completed", "job", job.Name)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("scheduler: invalid schedule for job %q: %w", job.Name, err)
		}
	}

	s.cron.Start()
	s.log.Infow("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.log.Infow("scheduler stopped")
	}
}

// ValidateSchedule reports whether schedule parses with the scheduler's parser.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(schedule)
	return err
}
