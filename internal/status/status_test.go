package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotReflectsStartAndProgress(t *testing.T) {
	tr := New()
	tr.OnStart(10)
	tr.OnFileProcessed("a.go")
	tr.OnGroupCommitted(5, 10)

	snap := tr.Snapshot()
	assert.True(t, snap.Indexing)
	assert.Equal(t, 10, snap.TotalFiles)
	assert.Equal(t, 5, snap.ProcessedFiles)
	assert.Equal(t, 50, snap.Progress)
	assert.Equal(t, "a.go", snap.CurrentFile)
}

func TestSnapshotClearsIndexingOnComplete(t *testing.T) {
	tr := New()
	tr.OnStart(3)
	tr.OnGroupCommitted(3, 3)
	tr.OnComplete()

	snap := tr.Snapshot()
	assert.False(t, snap.Indexing)
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.CurrentFile)
}

func TestProgressNeverExceedsOneHundred(t *testing.T) {
	tr := New()
	tr.OnStart(2)
	tr.OnGroupCommitted(5, 2)

	assert.Equal(t, 100, tr.Snapshot().Progress)
}

func TestProgressZeroWhenNoFilesDiscovered(t *testing.T) {
	tr := New()
	tr.OnStart(0)

	assert.Equal(t, 0, tr.Snapshot().Progress)
}

func TestHistoryRecordsCompletedRuns(t *testing.T) {
	tr := New()
	tr.OnStart(1)
	tr.OnGroupCommitted(1, 1)
	tr.OnComplete()

	hist := tr.History()
	assert.Len(t, hist, 1)
	assert.Empty(t, hist[0].Error)
	assert.Equal(t, 1, hist[0].FilesTouched)
}

func TestHistoryRecordsFailedRuns(t *testing.T) {
	tr := New()
	tr.OnStart(1)
	tr.OnFailed(errors.New("disk full"))

	hist := tr.History()
	assert.Len(t, hist, 1)
	assert.Equal(t, "disk full", hist[0].Error)
}

func TestHistoryWrapsAfterCapacity(t *testing.T) {
	tr := New()
	for i := 0; i < historySize+5; i++ {
		tr.OnStart(1)
		tr.OnGroupCommitted(1, 1)
		tr.OnComplete()
	}

	hist := tr.History()
	assert.Len(t, hist, historySize)
}

func TestChunkCountsReflectedInSnapshot(t *testing.T) {
	tr := New()
	tr.SetChunkCounts(100, 40)

	snap := tr.Snapshot()
	assert.Equal(t, 100, snap.TotalChunks)
	assert.Equal(t, 40, snap.IndexedChunks)
}
