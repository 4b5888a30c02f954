package main

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/baderkha/mysql2ch/pkg/migrate/event"
)

// progressListener : renders one terminal bar per streaming table. Bars are
// keyed by source table so concurrent migrations do not clobber each other's
// counters, although with max_concurrency > 1 the terminal output interleaves.
type progressListener struct {
	log zerolog.Logger

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func newProgressListener(log zerolog.Logger) *progressListener {
	return &progressListener{
		log:  log,
		bars: make(map[string]*progressbar.ProgressBar),
	}
}

var _ event.Listener = (*progressListener)(nil)

func (p *progressListener) OnTaskStarted(event.TaskStarted) {}

func (p *progressListener) OnTableStarted(ev event.TableStarted) {
	bar := progressbar.NewOptions64(ev.SourceRows,
		progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d] %s", ev.Index+1, ev.Total, ev.SourceTable)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionClearOnFinish(),
	)
	p.mu.Lock()
	p.bars[ev.SourceTable] = bar
	p.mu.Unlock()
}

func (p *progressListener) OnTableProgress(ev event.TableProgress) {
	p.mu.Lock()
	bar := p.bars[ev.SourceTable]
	p.mu.Unlock()
	if bar != nil {
		bar.Set64(ev.RowsWritten)
	}
}

func (p *progressListener) OnTableCompleted(ev event.TableCompleted) {
	p.mu.Lock()
	bar := p.bars[ev.SourceTable]
	delete(p.bars, ev.SourceTable)
	p.mu.Unlock()
	if bar != nil {
		bar.Finish()
	}
	p.log.Info().
		Str("table", ev.SourceTable).
		Str("status", ev.Status).
		Int64("rows", ev.RowsWritten).
		Dur("took", ev.Duration).
		Msg("table done")
}

func (p *progressListener) OnTaskCompleted(event.TaskCompleted) {}
