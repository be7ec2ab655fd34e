package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Status animates a one-line activity indicator until stopped.
type Status struct {
	message string
	frames  spinner.Spinner

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Spin starts a status line drawn with the given bubbles spinner.
func Spin(message string, frames spinner.Spinner) *Status {
	s := &Status{
		message: message,
		frames:  frames,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Status) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := accent.Render(s.frames.Frames[i%len(s.frames.Frames)])
		fmt.Fprintf(stdout, "\r%s %s", frame, s.message)
		select {
		case <-s.stop:
			fmt.Fprint(stdout, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop erases the line. Calling it again is a no-op.
func (s *Status) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Connecting shows a globe while a network operation is in flight.
func Connecting(message string) func() {
	return Spin(message, spinner.Globe).Stop
}

// Waiting shows moving points while waiting on another room member.
func Waiting(message string) func() {
	return Spin(message, spinner.Points).Stop
}
