package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/vertextoedge/aaxfetch/internal/domain/event"
)

// progressBar renders transfer events as a terminal progress bar
type progressBar struct {
	p        *mpb.Progress
	bar      *mpb.Bar
	finished bool
}

func newProgressBar(ctx context.Context, out io.Writer, dest string) *progressBar {
	p := mpb.NewWithContext(ctx,
		mpb.WithOutput(out),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(150*time.Millisecond),
	)

	name := filepath.Base(dest)
	bar := p.New(0,
		mpb.BarStyle().Lbound("[").Filler("#").Tip(">").Padding("-").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 6}), "done",
			),
			decor.Name(" "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f"),
		),
	)

	return &progressBar{p: p, bar: bar}
}

// Handle updates the bar from a transfer event
func (b *progressBar) Handle(e event.DomainEvent) error {
	switch ev := e.(type) {
	case event.AttemptStarted:
		if ev.Total.Known() {
			b.bar.SetTotal(ev.Total.Bytes(), false)
		}
		b.bar.SetCurrent(ev.Offset)
	case event.Progress:
		b.bar.SetCurrent(ev.BytesSoFar)
		if !ev.Total.Known() {
			b.bar.SetTotal(-1, false)
		}
	case event.TransferCompleted:
		b.bar.SetCurrent(ev.Size)
		b.bar.SetTotal(-1, true)
		b.finished = true
	case event.TransferFailed:
		b.bar.Abort(false)
		b.finished = true
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (b *progressBar) HandledEvents() []string {
	return []string{
		event.NameAttemptStarted,
		event.NameProgress,
		event.NameTransferCompleted,
		event.NameTransferFailed,
	}
}

// Wait flushes the bar; it must be called once the transfer returned
func (b *progressBar) Wait() {
	if !b.finished {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
