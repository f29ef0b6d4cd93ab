// Package status exposes the indexing engine's progress as a thread-safe
// snapshot, readable concurrently with the writes that produce it. It
// implements engine.Reporter so the engine can drive it directly.
package status

import (
	"sync"
	"time"
)

// Snapshot is an immutable point-in-time view of indexing progress.
type Snapshot struct {
	Indexing       bool   `json:"indexing"`
	Progress       int    `json:"progress"`
	TotalFiles     int    `json:"total_files"`
	ProcessedFiles int    `json:"processed_files"`
	TotalChunks    int    `json:"total_chunks"`
	IndexedChunks  int    `json:"indexed_chunks"`
	CurrentFile    string `json:"current_file,omitempty"`
}

// Batch records the outcome of one completed indexing run, for the
// reload-history ring buffer.
type Batch struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	FilesTouched int         `json:"files_touched"`
	Error      string        `json:"error,omitempty"`
}

const historySize = 20

// Tracker is a shared, lock-protected progress tracker. The zero value is
// not usable; construct with New.
type Tracker struct {
	mu sync.RWMutex

	indexing       bool
	totalFiles     int
	processedFiles int
	totalChunks    int
	indexedChunks  int
	currentFile    string
	runStart       time.Time

	history    []Batch
	historyPos int
}

// New returns a ready-to-use Tracker, reporting no indexing in progress.
func New() *Tracker {
	return &Tracker{history: make([]Batch, 0, historySize)}
}

// OnStart implements engine.Reporter.
func (t *Tracker) OnStart(totalFiles int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexing = true
	t.totalFiles = totalFiles
	t.processedFiles = 0
	t.currentFile = ""
	t.runStart = time.Now()
}

// OnFileProcessed implements engine.Reporter.
func (t *Tracker) OnFileProcessed(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentFile = path
}

// OnGroupCommitted implements engine.Reporter.
func (t *Tracker) OnGroupCommitted(processedFiles, totalFiles int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processedFiles = processedFiles
	t.totalFiles = totalFiles
}

// OnComplete implements engine.Reporter.
func (t *Tracker) OnComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordHistoryLocked(nil)
	t.indexing = false
	t.currentFile = ""
}

// OnFailed is a supplemental hook (not part of engine.Reporter) a caller
// can invoke when a run aborts, so the failure shows up in history.
func (t *Tracker) OnFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordHistoryLocked(err)
	t.indexing = false
	t.currentFile = ""
}

func (t *Tracker) recordHistoryLocked(err error) {
	b := Batch{
		StartedAt:    t.runStart,
		Duration:     time.Since(t.runStart),
		FilesTouched: t.processedFiles,
	}
	if err != nil {
		b.Error = err.Error()
	}
	if len(t.history) < historySize {
		t.history = append(t.history, b)
		return
	}
	t.history[t.historyPos] = b
	t.historyPos = (t.historyPos + 1) % historySize
}

// SetChunkCounts lets the engine report chunk-level progress independent of
// file-level group commits, since a group spans many chunks.
func (t *Tracker) SetChunkCounts(total, indexed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalChunks = total
	t.indexedChunks = indexed
}

// Snapshot returns a coherent, independent copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Indexing:       t.indexing,
		Progress:       progressPercent(t.processedFiles, t.totalFiles),
		TotalFiles:     t.totalFiles,
		ProcessedFiles: t.processedFiles,
		TotalChunks:    t.totalChunks,
		IndexedChunks:  t.indexedChunks,
		CurrentFile:    t.currentFile,
	}
}

// History returns the reload-history ring buffer in chronological order.
func (t *Tracker) History() []Batch {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Batch, len(t.history))
	if len(t.history) < historySize {
		copy(out, t.history)
		return out
	}
	copy(out, t.history[t.historyPos:])
	copy(out[historySize-t.historyPos:], t.history[:t.historyPos])
	return out
}

func progressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := processed * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}
