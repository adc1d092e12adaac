package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner provides a progress indicator with context cancellation support.
// Its message can be updated while it runs.
type Spinner struct {
	message string
	width   int // widest message drawn so far, for clearing
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	started bool
	frames  []string
	mu      sync.Mutex
}

// newSpinnerWithContext creates a spinner that will stop when the context is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		out:     os.Stderr,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Message returns the current text.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				if len(s.message) > s.width {
					s.width = len(s.message)
				}
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the spinner and clears the line. Stopping a spinner that was
// never started is a no-op.
func (s *Spinner) Stop() {
	s.cancel()
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true once the spinner's context is done, either by
// cancellation of its parent or by Stop.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
