package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
)

// Entry is one loan transition as written to the journal.
type Entry struct {
	Event      string    `json:"event"`
	LoanID     uint      `json:"loan_id"`
	GameID     uint      `json:"game_id"`
	LenderID   uint      `json:"lender_id"`
	BorrowerID uint      `json:"borrower_id"`
	ActorID    uint      `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Journal is an append-only JSON-lines log of loan transitions.
type Journal struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

func Open(filePath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	file, err := openAppend(filePath)
	if err != nil {
		return nil, err
	}

	return &Journal{filePath: filePath, file: file}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
}

// Append writes entry and syncs it to disk before returning.
func (j *Journal) Append(entry Entry) error {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("journal: write failed",
			zap.Uint("loan_id", entry.LoanID),
			zap.Error(err),
		)
		return err
	}

	if err := j.file.Sync(); err != nil {
		logger.Log.Error("journal: sync failed",
			zap.Uint("loan_id", entry.LoanID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("journal: entry appended",
		zap.String("event", entry.Event),
		zap.Uint("loan_id", entry.LoanID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *Journal) ReadAll() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.readAllLocked()
}

// Compact rewrites the journal without entries older than cutoff and returns
// how many were dropped.
func (j *Journal) Compact(cutoff time.Time) (int, error) {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAllLocked()
	if err != nil {
		return 0, err
	}

	kept := make([]Entry, 0, len(all))
	for _, e := range all {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	dropped := len(all) - len(kept)
	if dropped == 0 {
		return 0, nil
	}

	tmpPath := j.filePath + ".tmp"
	if err := writeEntries(tmpPath, kept); err != nil {
		logger.Log.Error("journal: failed to write compacted file",
			zap.String("temp_file", tmpPath),
			zap.Error(err),
		)
		return 0, err
	}

	if err := j.file.Close(); err != nil {
		logger.Log.Error("journal: close before swap failed", zap.Error(err))
		os.Remove(tmpPath)
		j.reopen()
		return 0, err
	}
	if err := os.Rename(tmpPath, j.filePath); err != nil {
		logger.Log.Error("journal: rename failed", zap.Error(err))
		os.Remove(tmpPath)
		j.reopen()
		return 0, err
	}

	// the old descriptor points at the replaced inode
	f, err := openAppend(j.filePath)
	if err != nil {
		return 0, err
	}
	j.file = f

	logger.Log.Info("journal: compacted",
		zap.Int("dropped", dropped),
		zap.Int("remaining", len(kept)),
		zap.Duration("duration", time.Since(start)),
	)
	return dropped, nil
}

// reopen keeps the journal writable after a failed swap. The caller holds mu.
func (j *Journal) reopen() {
	f, err := openAppend(j.filePath)
	if err != nil {
		logger.Log.Error("journal: reopen failed", zap.String("file", j.filePath), zap.Error(err))
		return
	}
	j.file = f
}

func writeEntries(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			f.Close()
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (j *Journal) readAllLocked() ([]Entry, error) {
	file, err := os.Open(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// torn trailing line after a crash
			continue
		}
		entries = append(entries, e)
	}

	return entries, scanner.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
