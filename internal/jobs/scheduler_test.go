package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Baaaki/gameshelf/internal/journal"
	"github.com/Baaaki/gameshelf/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakePurger) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 3, f.err
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(Config{TokenPurgeSchedule: "every now and then"}, &fakePurger{}, nil)

	assert.Error(t, err)
}

func TestNew_RequiresRetentionForJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "loans.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	_, err = New(Config{JournalCompactSchedule: "@daily"}, nil, j)

	assert.Error(t, err)
}

func TestNew_SkipsMissingJobs(t *testing.T) {
	s, err := New(Config{TokenPurgeSchedule: "@hourly", JournalCompactSchedule: "@daily", JournalRetention: time.Hour}, &fakePurger{}, nil)

	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestPurgeTokens_UsesNowAsCutoff(t *testing.T) {
	purger := &fakePurger{}
	s, err := New(Config{TokenPurgeSchedule: "@hourly"}, purger, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }

	require.NoError(t, s.PurgeTokens(context.Background()))

	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, fixedNow, purger.cutoff)
}

func TestCompactJournal_DropsEntriesPastRetention(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "loans.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	require.NoError(t, j.Append(journal.Entry{Event: "loan.created", LoanID: 1, Timestamp: fixedNow.Add(-48 * time.Hour)}))
	require.NoError(t, j.Append(journal.Entry{Event: "loan.returned", LoanID: 1, Timestamp: fixedNow.Add(-time.Hour)}))

	s, err := New(Config{JournalCompactSchedule: "@daily", JournalRetention: 24 * time.Hour}, nil, j)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }

	require.NoError(t, s.CompactJournal(context.Background()))

	entries, err := j.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "loan.returned", entries[0].Event)
}

func TestRun_RecordsOutcome(t *testing.T) {
	s, err := New(Config{}, &fakePurger{err: errors.New("db down")}, nil)
	require.NoError(t, err)

	before := jobRunCount(t, JobTokenPurge, "false")

	s.run(JobTokenPurge, s.PurgeTokens)()

	assert.Equal(t, before+1, jobRunCount(t, JobTokenPurge, "false"))
}

func jobRunCount(t *testing.T, job, success string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "gameshelf_jobs_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == job && labels["success"] == success {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStartStop(t *testing.T) {
	s, err := New(Config{TokenPurgeSchedule: "@every 1h"}, &fakePurger{}, nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	assert.NoError(t, ctx.Err())
}
