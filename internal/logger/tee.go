package logger

import (
	"io"
	"log"
	"os"
)

// Tee duplicates the process's stdout and the standard library "log"
// package's output to Writer as well as the original stdout, so that
// third-party code writing through either of those entry points (rather
// than through Logger) still lands in a request's log file.
type Tee struct {
	Writer io.Writer

	orig *os.File
	pr   *os.File
	pw   *os.File
	done chan struct{}
}

// Open redirects os.Stdout and the log package's output into an internal
// pipe, copying everything written to it to both the prior os.Stdout and
// Writer.
func (t *Tee) Open() error {
	t.orig = os.Stdout
	pr, pw, err := os.Pipe()
	if err != nil {
		return err
	}
	t.pr, t.pw = pr, pw
	os.Stdout = pw
	log.SetOutput(pw)

	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		_, _ = io.Copy(io.MultiWriter(t.orig, t.Writer), pr)
	}()
	return nil
}

// Close restores os.Stdout and sets the log package's output to os.Stderr
// (its default; an output set before Open is not restored), waiting for any
// buffered writes to finish copying.
func (t *Tee) Close() error {
	err := t.pw.Close()
	<-t.done
	os.Stdout = t.orig
	log.SetOutput(os.Stderr)
	_ = t.pr.Close()
	return err
}
