// Package jobs runs periodic maintenance: purging dead token rows and
// compacting the loan journal.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Baaaki/gameshelf/internal/metrics"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobTokenPurge     = "token_purge"
	JobJournalCompact = "journal_compact"

	jobTimeout = 5 * time.Minute
)

type TokenPurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type JournalCompactor interface {
	Compact(cutoff time.Time) (int, error)
}

type Config struct {
	TokenPurgeSchedule     string
	JournalCompactSchedule string
	JournalRetention       time.Duration
}

type Scheduler struct {
	cron      *cron.Cron
	tokens    TokenPurger
	journal   JournalCompactor
	retention time.Duration
	now       func() time.Time
}

// New registers the jobs. A nil journal or an empty schedule skips that job.
func New(cfg Config, tokens TokenPurger, journal JournalCompactor) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger.Named("cron").Sugar()}),
			cron.SkipIfStillRunning(cronLogger{logger.Named("cron").Sugar()}),
		)),
		tokens:    tokens,
		journal:   journal,
		retention: cfg.JournalRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if tokens != nil && cfg.TokenPurgeSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.TokenPurgeSchedule, s.run(JobTokenPurge, s.PurgeTokens)); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", JobTokenPurge, cfg.TokenPurgeSchedule, err)
		}
	}
	if journal != nil && cfg.JournalCompactSchedule != "" {
		if cfg.JournalRetention <= 0 {
			return nil, fmt.Errorf("journal retention must be positive, got %s", cfg.JournalRetention)
		}
		if _, err := s.cron.AddFunc(cfg.JournalCompactSchedule, s.run(JobJournalCompact, s.CompactJournal)); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", JobJournalCompact, cfg.JournalCompactSchedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	logger.Log.Info("Maintenance jobs started", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones or ctx, whichever first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		logger.Log.Warn("Maintenance jobs still running at shutdown")
	}
}

func (s *Scheduler) run(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		err := job(ctx)
		metrics.RecordJobRun(name, time.Since(start), err == nil)
		if err != nil {
			logger.Log.Error("Maintenance job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

// PurgeTokens deletes revoked and expired token rows.
func (s *Scheduler) PurgeTokens(ctx context.Context) error {
	n, err := s.tokens.PurgeStale(ctx, s.now())
	if err != nil {
		return err
	}
	logger.Log.Info("Purged stale tokens", zap.Int64("deleted", n))
	return nil
}

// CompactJournal drops journal entries older than the retention window.
func (s *Scheduler) CompactJournal(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cutoff := s.now().Add(-s.retention)
	n, err := s.journal.Compact(cutoff)
	if err != nil {
		return err
	}
	logger.Log.Info("Compacted loan journal", zap.Int("dropped", n), zap.Time("cutoff", cutoff))
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
