package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerBackends(t *testing.T) map[string]func() Ledger {
	dir := t.TempDir()
	return map[string]func() Ledger{
		"file": func() Ledger {
			return NewFileLedger(filepath.Join(dir, "processed_ids.txt"), filepath.Join(dir, "failed_ids.txt"))
		},
		"sqlite": func() Ledger {
			return NewSQLiteLedger(filepath.Join(dir, "ledger.db"))
		},
	}
}

func TestLedgerStatesStayDisjoint(t *testing.T) {
	ctx := context.Background()
	for name, open := range ledgerBackends(t) {
		t.Run(name, func(t *testing.T) {
			l := open()
			t.Cleanup(func() { _ = l.Close() })
			require.NoError(t, l.Load(ctx))

			require.NoError(t, l.MarkFailed(ctx, "a"))
			assert.True(t, l.IsFailed("a"))
			assert.False(t, l.IsProcessed("a"))

			require.NoError(t, l.MarkProcessed(ctx, "a"))
			assert.True(t, l.IsProcessed("a"))
			assert.False(t, l.IsFailed("a"))

			// a processed id is never demoted
			require.NoError(t, l.MarkFailed(ctx, "a"))
			assert.False(t, l.IsFailed("a"))

			require.NoError(t, l.MarkFailed(ctx, "b"))
			require.NoError(t, l.MarkFailed(ctx, "b"))
			processed, failed := l.Counts()
			assert.Equal(t, 1, processed)
			assert.Equal(t, 1, failed)
		})
	}
}

func TestLedgerSurvivesReload(t *testing.T) {
	ctx := context.Background()
	for name, open := range ledgerBackends(t) {
		t.Run(name, func(t *testing.T) {
			l := open()
			require.NoError(t, l.Load(ctx))
			require.NoError(t, l.MarkProcessed(ctx, "done"))
			require.NoError(t, l.MarkFailed(ctx, "retry"))
			require.NoError(t, l.MarkFailed(ctx, "gone"))
			require.NoError(t, l.ForgetFailure(ctx, "gone"))
			require.NoError(t, l.Close())

			reopened := open()
			t.Cleanup(func() { _ = reopened.Close() })
			require.NoError(t, reopened.Load(ctx))
			assert.True(t, reopened.IsProcessed("done"))
			assert.True(t, reopened.IsFailed("retry"))
			assert.False(t, reopened.IsFailed("gone"))
			assert.False(t, reopened.IsProcessed("gone"))
		})
	}
}

func TestFileLedgerMissingFilesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLedger(filepath.Join(dir, "nope", "p.txt"), filepath.Join(dir, "nope", "f.txt"))
	require.NoError(t, l.Load(context.Background()))

	processed, failed := l.Counts()
	assert.Zero(t, processed)
	assert.Zero(t, failed)
}

func TestFileLedgerDropsStaleFailures(t *testing.T) {
	dir := t.TempDir()
	processedPath := filepath.Join(dir, "processed_ids.txt")
	failedPath := filepath.Join(dir, "failed_ids.txt")
	require.NoError(t, os.WriteFile(processedPath, []byte("x\n\ny\n"), 0644))
	require.NoError(t, os.WriteFile(failedPath, []byte("y\nz\n"), 0644))

	l := NewFileLedger(processedPath, failedPath)
	require.NoError(t, l.Load(context.Background()))

	assert.True(t, l.IsProcessed("y"))
	assert.False(t, l.IsFailed("y"))
	assert.True(t, l.IsFailed("z"))

	data, err := os.ReadFile(failedPath)
	require.NoError(t, err)
	assert.Equal(t, "z", strings.TrimSpace(string(data)))
}

func TestFileLedgerMarkProcessedRewritesFailed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	failedPath := filepath.Join(dir, "failed_ids.txt")
	l := NewFileLedger(filepath.Join(dir, "processed_ids.txt"), failedPath)
	require.NoError(t, l.Load(ctx))

	require.NoError(t, l.MarkFailed(ctx, "v1"))
	require.NoError(t, l.MarkFailed(ctx, "v2"))
	require.NoError(t, l.MarkProcessed(ctx, "v1"))

	data, err := os.ReadFile(failedPath)
	require.NoError(t, err)
	assert.Equal(t, "v2", strings.TrimSpace(string(data)))
}

func TestNewLedgerSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	config := &Config{
		LedgerBackend:    "sqlite",
		LedgerDB:         filepath.Join(dir, "ledger.db"),
		ProcessedIDsFile: filepath.Join(dir, "p.txt"),
		FailedIDsFile:    filepath.Join(dir, "f.txt"),
	}
	assert.IsType(t, &SQLiteLedger{}, NewLedger(config))

	config.LedgerBackend = "file"
	assert.IsType(t, &FileLedger{}, NewLedger(config))
}

func TestLedgerConcurrentMarksAndReloads(t *testing.T) {
	ctx := context.Background()
	for name, open := range ledgerBackends(t) {
		t.Run(name, func(t *testing.T) {
			l := open()
			t.Cleanup(func() { _ = l.Close() })
			require.NoError(t, l.Load(ctx))

			var wg sync.WaitGroup
			for i := range 8 {
				id := fmt.Sprintf("%s-%d", name, i)
				wg.Go(func() {
					assert.NoError(t, l.MarkFailed(ctx, id))
					assert.NoError(t, l.MarkProcessed(ctx, id))
				})
				wg.Go(func() {
					assert.NoError(t, l.Load(ctx))
					l.IsProcessed(id)
					l.Counts()
				})
			}
			wg.Wait()

			require.NoError(t, l.Load(ctx))
			for i := range 8 {
				assert.True(t, l.IsProcessed(fmt.Sprintf("%s-%d", name, i)))
			}
			_, failed := l.Counts()
			assert.Zero(t, failed)
		})
	}
}
