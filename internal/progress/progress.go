package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter abstracts progress display so batch stages stay testable.
// A nil Reporter is valid and reports nothing.
type Reporter interface {
	Start(desc string, total int)
	Increment()
	Finish()
}

// Bar renders a terminal progress bar for long batch passes
type Bar struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

// New returns a Reporter, or nil when progress display is disabled
func New(enabled bool) Reporter {
	if !enabled {
		return nil
	}
	return &Bar{enabled: true}
}

func (p *Bar) Start(desc string, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *Bar) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *Bar) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

// DefaultEnabled reports whether stderr is a terminal
func DefaultEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
