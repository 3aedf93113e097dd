package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// terminalHost reads raw stdin a byte at a time and feeds completed
// lines to a Monitor. Grounded on the teacher's TerminalHost
// (terminal_host.go), adapted from routing bytes into an emulated MMIO
// device to routing lines into the command monitor.
type terminalHost struct {
	mon *monitor

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	line []byte
}

func newTerminalHost(mon *monitor) *terminalHost {
	return &terminalHost{
		mon:    mon,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin in raw non-blocking mode and begins reading in a
// goroutine. Call Stop to restore stdin.
func (h *terminalHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "terminal: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.handleByte(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *terminalHost) handleByte(b byte) {
	switch {
	case b == '\r' || b == '\n':
		line := string(h.line)
		h.line = h.line[:0]
		fmt.Print("\r\n")
		h.mon.Dispatch(line)
		fmt.Print("edmon> ")
	case b == 0x7F || b == 0x08:
		if len(h.line) > 0 {
			h.line = h.line[:len(h.line)-1]
			fmt.Print("\b \b")
		}
	default:
		h.line = append(h.line, b)
		fmt.Printf("%c", b)
	}
}

// Stop terminates the stdin reading goroutine and restores stdin to
// blocking mode.
func (h *terminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
