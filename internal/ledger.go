package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger tracks which item ids were processed for good and which failed and
// must be retried on the next run. An id is never in both sets.
type Ledger interface {
	Load(ctx context.Context) error
	IsProcessed(id string) bool
	IsFailed(id string) bool
	// MarkProcessed records terminal success and drops the id from failed.
	MarkProcessed(ctx context.Context, id string) error
	// MarkFailed is idempotent and never demotes a processed id.
	MarkFailed(ctx context.Context, id string) error
	// ForgetFailure drops an id from failed without marking it processed.
	ForgetFailure(ctx context.Context, id string) error
	Counts() (processed, failed int)
	Close() error
}

// FileLedger keeps both sets in newline-delimited text files
type FileLedger struct {
	processedPath string
	failedPath    string

	mu        sync.RWMutex
	processed map[string]struct{}
	failed    map[string]struct{}
}

// NewFileLedger creates a ledger backed by the two given files
func NewFileLedger(processedPath, failedPath string) *FileLedger {
	return &FileLedger{
		processedPath: processedPath,
		failedPath:    failedPath,
		processed:     make(map[string]struct{}),
		failed:        make(map[string]struct{}),
	}
}

// Load reads both files; missing files are empty sets
func (l *FileLedger) Load(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	processed, err := readIDSet(l.processedPath)
	if err != nil {
		return fmt.Errorf("loading processed ids: %w", err)
	}
	failed, err := readIDSet(l.failedPath)
	if err != nil {
		return fmt.Errorf("loading failed ids: %w", err)
	}

	// a crash between append and rewrite can leave an id in both files
	stale := false
	for id := range failed {
		if _, ok := processed[id]; ok {
			delete(failed, id)
			stale = true
		}
	}

	l.processed = processed
	l.failed = failed

	if stale {
		return l.rewriteFailed()
	}
	return nil
}

func (l *FileLedger) IsProcessed(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.processed[id]
	return ok
}

func (l *FileLedger) IsFailed(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.failed[id]
	return ok
}

func (l *FileLedger) MarkProcessed(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.processed[id]; !ok {
		if err := appendID(l.processedPath, id); err != nil {
			return fmt.Errorf("saving processed id: %w", err)
		}
		l.processed[id] = struct{}{}
	}
	if _, ok := l.failed[id]; ok {
		delete(l.failed, id)
		if err := l.rewriteFailed(); err != nil {
			return fmt.Errorf("removing failed id: %w", err)
		}
	}
	return nil
}

func (l *FileLedger) MarkFailed(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, processed := l.processed[id]
	_, failed := l.failed[id]
	if processed || failed {
		return nil
	}
	if err := appendID(l.failedPath, id); err != nil {
		return fmt.Errorf("saving failed id: %w", err)
	}
	l.failed[id] = struct{}{}
	return nil
}

func (l *FileLedger) ForgetFailure(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.failed[id]; !ok {
		return nil
	}
	delete(l.failed, id)
	return l.rewriteFailed()
}

func (l *FileLedger) Counts() (int, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.processed), len(l.failed)
}

func (l *FileLedger) Close() error { return nil }

// rewriteFailed must be called with mu held
func (l *FileLedger) rewriteFailed() error {
	return writeIDSet(l.failedPath, l.failed)
}

// readIDSet loads one id per line, ignoring blank lines
func readIDSet(path string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ids, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, scanner.Err()
}

func appendID(path, id string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeIDSet(path string, ids map[string]struct{}) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	var sb strings.Builder
	for id := range ids {
		sb.WriteString(id)
		sb.WriteString("\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return EnsureDirs(dir)
}
