package cli

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type batchProgress struct {
	bar  *progressbar.ProgressBar
	mu   sync.Mutex
	once sync.Once
}

// startBatchProgress renders a counting bar on stderr. A disabled or empty
// progress is a no-op, so callers never branch on it.
func startBatchProgress(enabled bool, description string, total int) *batchProgress {
	p := &batchProgress{}
	if !enabled || total <= 0 {
		return p
	}

	p.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return p
}

func (p *batchProgress) advance() {
	if p == nil || p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Add(1)
}

func (p *batchProgress) stop() {
	if p == nil || p.bar == nil {
		return
	}
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		_ = p.bar.Finish()
	})
}
