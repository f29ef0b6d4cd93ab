package status

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// BarReporter renders a Tracker's progress to a terminal progress bar. It
// wraps a Tracker rather than replacing it, so the same run is observable
// both through Tracker.Snapshot and visually.
type BarReporter struct {
	tracker *Tracker
	quiet   bool
	bar     *progressbar.ProgressBar
}

// NewBarReporter returns a reporter driving both tr and a terminal bar. When
// quiet is true, the bar is suppressed but tr is still updated.
func NewBarReporter(tr *Tracker, quiet bool) *BarReporter {
	return &BarReporter{tracker: tr, quiet: quiet}
}

func (b *BarReporter) OnStart(totalFiles int) {
	b.tracker.OnStart(totalFiles)
	if b.quiet {
		return
	}
	b.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (b *BarReporter) OnFileProcessed(path string) {
	b.tracker.OnFileProcessed(path)
}

func (b *BarReporter) OnGroupCommitted(processedFiles, totalFiles int) {
	b.tracker.OnGroupCommitted(processedFiles, totalFiles)
	if b.quiet || b.bar == nil {
		return
	}
	b.bar.Set(processedFiles)
}

func (b *BarReporter) OnComplete() {
	b.tracker.OnComplete()
	if b.quiet || b.bar == nil {
		return
	}
	b.bar.Finish()
	b.bar = nil
}
