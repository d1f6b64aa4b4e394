package suite

import (
	"fmt"
	"io"
	"sync"
)

// Console receives progress messages and the text report body.
type Console interface {
	WriteLine(text string)
}

type writerConsole struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterConsole returns a Console writing newline-terminated lines to w.
func NewWriterConsole(w io.Writer) Console {
	return &writerConsole{w: w}
}

func (c *writerConsole) WriteLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, text)
}

type nopConsole struct{}

func (nopConsole) WriteLine(string) {}
