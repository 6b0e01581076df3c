package report

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console writes one line per report.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Report(_ context.Context, r Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.w, Line(r)); err != nil {
		return fmt.Errorf("write report line: %w", err)
	}
	return nil
}
