// Package progress renders transfer progress in the terminal.
package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress keeps one bar per transfer ID so concurrent inbound transfers
// each get their own line. Bars count percent, 0 to 100.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
}

func New(out io.Writer) *Progress {
	return &Progress{
		out:      out,
		progress: newMpb(out),
		bars:     make(map[string]*mpb.Bar),
	}
}

func newMpb(out io.Writer) *mpb.Progress {
	if out == nil {
		return mpb.New(mpb.WithWidth(48))
	}
	return mpb.New(mpb.WithWidth(48), mpb.WithOutput(out))
}

func (p *Progress) newBar(text string) *mpb.Bar {
	return p.progress.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 12, C: decor.DindentRight}),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12, C: decor.DindentRight}),
		),
	)
}

// Update moves the bar for id to percent, creating it labelled text on
// first sight. A bar at 100 is complete and forgotten.
func (p *Progress) Update(id, text string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[id]
	if !ok {
		bar = p.newBar(text)
		p.bars[id] = bar
	}

	bar.SetCurrent(int64(min(max(percent, 0), 100)))

	if percent >= 100 {
		delete(p.bars, id)
	}
}

// Abort drops the bar for id, leaving what it showed on screen.
func (p *Progress) Abort(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bar, ok := p.bars[id]; ok {
		bar.Abort(false)
		delete(p.bars, id)
	}
}

func (p *Progress) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bars)
}

func (p *Progress) Wait() {
	p.progress.Wait()
}

// Reset aborts unfinished bars and starts a fresh container.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, bar := range p.bars {
		bar.Abort(false)
		delete(p.bars, id)
	}
	p.progress.Wait()

	p.progress = newMpb(p.out)
}
