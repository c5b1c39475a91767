package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/marmos91/dittobox/internal/bytesize"
)

const (
	defaultBarWidth = 40
	minBarWidth     = 10
	redrawInterval  = 100 * time.Millisecond
)

// Progress draws a single-line transfer progress bar. Its Update method
// matches transfer.ProgressFunc.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	width    int
	lastDraw time.Time
	done     bool
}

// NewProgress creates a bar sized to the terminal behind out, if any.
func NewProgress(out io.Writer, label string) *Progress {
	width := defaultBarWidth
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			// Room for the label, percentage and byte counts.
			width = max(minBarWidth, min(cols-len(label)-40, 60))
		}
	}
	return &Progress{out: out, label: label, width: width}
}

// Update redraws the bar. Redraws are throttled except for the final one.
func (p *Progress) Update(done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	final := done >= total
	now := time.Now()
	if !final && now.Sub(p.lastDraw) < redrawInterval {
		return
	}
	p.lastDraw = now

	_, _ = fmt.Fprint(p.out, "\r"+RenderBar(p.label, done, total, p.width))
	if final {
		p.done = true
		_, _ = fmt.Fprintln(p.out)
	}
}

// Finish ends the line if the bar never reached 100%.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done && !p.lastDraw.IsZero() {
		_, _ = fmt.Fprintln(p.out)
	}
	p.done = true
}

// RenderBar formats one frame of the bar. A zero total renders as complete.
func RenderBar(label string, done, total int64, width int) string {
	ratio := 1.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	ratio = min(max(ratio, 0), 1)

	filled := int(ratio * float64(width))
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">" + strings.Repeat(" ", width-filled-1)
	}
	return fmt.Sprintf("%s [%s] %3.0f%% %s/%s",
		label, bar, ratio*100, bytesize.Human(done), bytesize.Human(total))
}
