package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bilgisen/quickbyte/internal/logger"
	"github.com/bilgisen/quickbyte/internal/models"
)

// ErrAlreadyRunning is returned when a task is triggered while a previous
// run of the same task has not finished.
var ErrAlreadyRunning = errors.New("task already running")

// Refresher is the headline side of the aggregator.
type Refresher interface {
	RefreshHeadlines(ctx context.Context, country string, page, pageSize int) (int, error)
	InvalidateCache(ctx context.Context) error
}

// Sweeper removes expired articles.
type Sweeper interface {
	FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.Article, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver keeps a copy of articles before they are evicted.
type Archiver interface {
	Archive(ctx context.Context, articles []models.Article) error
}

// Config holds the schedules and parameters of both tasks.
type Config struct {
	RefreshSchedule  string
	RefreshCountry   string
	RefreshPageSize  int
	EvictionSchedule string
	Retention        time.Duration
	JobTimeout       time.Duration
}

// EvictionResult summarizes one eviction sweep.
type EvictionResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Archived int       `json:"archived"`
	Deleted  int64     `json:"deleted"`
}

// TaskStatus describes one scheduled task.
type TaskStatus struct {
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

// Status is a snapshot of both tasks.
type Status struct {
	Refresh  TaskStatus `json:"refresh"`
	Eviction TaskStatus `json:"eviction"`
}

// task is a single-slot guard plus the bookkeeping reported by Status.
type task struct {
	running atomic.Bool
	entryID cron.EntryID

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func (t *task) finish(at time.Time, err error) {
	t.mu.Lock()
	t.lastRun = at
	t.lastErr = err
	t.mu.Unlock()
	t.running.Store(false)
}

// Scheduler runs the periodic headline refresh and the retention sweep.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	sweeper   Sweeper
	archiver  Archiver
	cfg       Config
	now       func() time.Time

	refresh  task
	eviction task
}

// New creates a scheduler. archiver may be nil.
func New(refresher Refresher, sweeper Sweeper, archiver Archiver, cfg Config) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.RefreshPageSize <= 0 {
		cfg.RefreshPageSize = 20
	}
	if cfg.RefreshCountry == "" {
		cfg.RefreshCountry = "us"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}

	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		sweeper:   sweeper,
		archiver:  archiver,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start registers both tasks and starts the cron loop.
func (s *Scheduler) Start() error {
	log := logger.Component("scheduler")

	var err error
	s.refresh.entryID, err = s.cron.AddFunc(s.cfg.RefreshSchedule, func() {
		n, err := s.RunRefresh(context.Background())
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			log.Debug().Msg("Headline refresh still running, skipping")
		case err != nil:
			log.Error().Err(err).Msg("Headline refresh failed")
		default:
			log.Info().Int("stored", n).Msg("Headline refresh finished")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling refresh %q: %w", s.cfg.RefreshSchedule, err)
	}

	s.eviction.entryID, err = s.cron.AddFunc(s.cfg.EvictionSchedule, func() {
		res, err := s.RunEviction(context.Background())
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			log.Debug().Msg("Eviction still running, skipping")
		case err != nil:
			log.Error().Err(err).Msg("Eviction failed")
		default:
			log.Info().
				Int64("deleted", res.Deleted).
				Int("archived", res.Archived).
				Time("cutoff", res.Cutoff).
				Msg("Eviction finished")
		}
	})
	if err != nil {
		s.cron.Remove(s.refresh.entryID)
		return fmt.Errorf("scheduling eviction %q: %w", s.cfg.EvictionSchedule, err)
	}

	s.cron.Start()
	log.Info().
		Str("refresh", s.cfg.RefreshSchedule).
		Str("eviction", s.cfg.EvictionSchedule).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunRefresh performs one headline refresh and clears cached pages. It
// returns the number of stored articles.
func (s *Scheduler) RunRefresh(ctx context.Context) (int, error) {
	if !s.refresh.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	n, err := s.refresher.RefreshHeadlines(ctx, s.cfg.RefreshCountry, 1, s.cfg.RefreshPageSize)
	if err == nil {
		if cerr := s.refresher.InvalidateCache(ctx); cerr != nil {
			logger.Get().Warn().Err(cerr).Msg("Failed to clear page cache after refresh")
		}
	}

	s.refresh.finish(s.now(), err)
	return n, err
}

// RunEviction deletes every article published before now minus the
// retention window, archiving them first when an archiver is configured.
func (s *Scheduler) RunEviction(ctx context.Context) (EvictionResult, error) {
	if !s.eviction.running.CompareAndSwap(false, true) {
		return EvictionResult{}, ErrAlreadyRunning
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	res, err := s.evict(ctx)
	s.eviction.finish(s.now(), err)
	return res, err
}

func (s *Scheduler) evict(ctx context.Context) (EvictionResult, error) {
	log := logger.Get()
	res := EvictionResult{Cutoff: s.now().UTC().Add(-s.cfg.Retention)}

	if s.archiver != nil {
		doomed, err := s.sweeper.FindOlderThan(ctx, res.Cutoff)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to list expired articles for archiving")
		} else if len(doomed) > 0 {
			if err := s.archiver.Archive(ctx, doomed); err != nil {
				log.Warn().Err(err).Int("count", len(doomed)).Msg("Failed to archive expired articles")
			} else {
				res.Archived = len(doomed)
			}
		}
	}

	deleted, err := s.sweeper.DeleteOlderThan(ctx, res.Cutoff)
	if err != nil {
		return res, fmt.Errorf("evicting articles: %w", err)
	}
	res.Deleted = deleted

	if deleted > 0 {
		if err := s.refresher.InvalidateCache(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to clear page cache after eviction")
		}
	}
	return res, nil
}

// Status reports the state of both tasks.
func (s *Scheduler) Status() Status {
	return Status{
		Refresh:  s.taskStatus(&s.refresh, s.cfg.RefreshSchedule),
		Eviction: s.taskStatus(&s.eviction, s.cfg.EvictionSchedule),
	}
}

func (s *Scheduler) taskStatus(t *task, schedule string) TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TaskStatus{
		Schedule: schedule,
		Running:  t.running.Load(),
		LastRun:  t.lastRun,
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	if t.entryID != 0 {
		st.NextRun = s.cron.Entry(t.entryID).Next
	}
	return st
}
