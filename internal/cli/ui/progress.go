package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Spinner animates an indeterminate wait on the terminal. A solve has
// no meaningful progress fraction (the iteration count is unknown up
// front), so this is the only busy indicator the CLI carries.
//
// The spinner never reports an outcome. It clears its own line on Stop
// and leaves success or failure reporting to the caller, which renders
// the result through RenderSolveResult or WriteError.
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	active   bool
	done     chan struct{}
	noColor  bool
}

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner that writes to w. The message is fixed
// for the spinner's lifetime.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		message:  message,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
		noColor:  noColor,
	}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	s.active = true
	go s.animate()
}

// Stop halts the animation and clears the spinner line.
func (s *Spinner) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.done <- struct{}{}
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) animate() {
	frame := 0
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// WithSpinner animates message while fn runs, then clears the line and
// returns fn's error. The spinner line never survives the call, so the
// caller's own output starts at column zero either way.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, message, noColor)
	spinner.Start()
	defer spinner.Stop()
	return fn()
}
