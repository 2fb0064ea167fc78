package tui

import "time"

// TickMsg is sent periodically to poll the session.
type TickMsg struct {
	Time time.Time
}

// DescribedMsg carries the outcome of a description extraction.
type DescribedMsg struct {
	Text string
	Err  error
}
