// Package vt implements the virtual terminal component of the session
// supervisor: it consumes a PTY byte stream and maintains enough of a
// terminal emulator to read back visible screen lines for state
// classification, plus a bounded raw-byte scrollback used only to
// replay the screen when an operator re-attaches.
package vt

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/vito/midterm"
)

// DefaultVisibleLines is the default number of lines returned by Lines
// when the caller does not need a specific window.
const DefaultVisibleLines = 300

// RawHistoryLimit bounds the raw-bytes replay ring buffer.
const RawHistoryLimit = 10 * 1024 * 1024 // 10 MiB

// VT owns the PTY lifecycle, child process, virtual terminal buffer, and I/O streams.
type VT struct {
	Ptm       *os.File          // PTY master (connected to child process)
	Cmd       *exec.Cmd         // child process
	Mu        sync.Mutex        // guards all terminal writes (session accesses via s.VT.Mu)
	Vt        *midterm.Terminal // virtual terminal for child output
	Rows      int               // terminal rows
	Cols      int               // terminal cols
	ChildRows int               // number of rows reserved for the child PTY
	OscFg     string            // cached OSC 10 response (foreground color)
	OscBg     string            // cached OSC 11 response (background color)
	LastOut   time.Time         // last time child output updated the screen

	// RawHistory is a bounded ring of the literal bytes the child wrote,
	// used only to replay the screen on re-attach (spec §4.1). OSC
	// sequences that set the default foreground/background color are
	// stripped before they land here, because some agents emit them in a
	// form that leaks as literal text when replayed outside a real
	// terminal.
	RawHistory    []byte
	rawHistoryMax int
}

// KillChild sends SIGKILL to the child process. Used when the child is hung
// and not responding to normal signals.
func (vt *VT) KillChild() {
	if vt.Cmd != nil && vt.Cmd.Process != nil {
		vt.Cmd.Process.Kill()
	}
}

// StartPTY creates and starts the child process in a PTY with the given size.
// If extraEnv is non-nil, those environment variables are added to the child's environment,
// overriding any existing values. When extraEnv sets PWD, the child is
// also started in that directory.
func (vt *VT) StartPTY(command string, args []string, childRows, cols int, extraEnv map[string]string) error {
	vt.Cmd = exec.Command(command, args...)
	if dir := extraEnv["PWD"]; dir != "" {
		vt.Cmd.Dir = dir
	}
	if len(extraEnv) > 0 {
		env := make([]string, 0, len(os.Environ())+len(extraEnv))
		for _, e := range os.Environ() {
			key := e
			if idx := strings.Index(e, "="); idx >= 0 {
				key = e[:idx]
			}
			if _, override := extraEnv[key]; !override {
				env = append(env, e)
			}
		}
		for k, v := range extraEnv {
			env = append(env, k+"="+v)
		}
		vt.Cmd.Env = env
	}
	var err error
	vt.Ptm, err = pty.StartWithSize(vt.Cmd, &pty.Winsize{
		Rows: uint16(childRows),
		Cols: uint16(cols),
	})
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	return nil
}

// PipeOutput reads child PTY output into the virtual terminal and calls
// onData with each chunk, while holding Mu, so the caller can forward
// it and update session state without racing a concurrent reader of
// the virtual terminal. onData must not call back into vt (it already
// holds Mu) and must not retain the slice past the call, since buf is
// reused on the next read.
func (vt *VT) PipeOutput(onData func(chunk []byte)) {
	buf := make([]byte, 4096)
	for {
		n, err := vt.Ptm.Read(buf)
		if n > 0 {
			vt.RespondOSCColors(buf[:n])

			vt.Mu.Lock()
			vt.LastOut = time.Now()
			vt.Vt.Write(buf[:n])
			vt.appendRawHistory(buf[:n])
			onData(buf[:n])
			vt.Mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// appendRawHistory appends data to the bounded raw-bytes replay buffer,
// stripping OSC 10/11 default-color-setting sequences first. Caller must
// hold vt.Mu.
func (vt *VT) appendRawHistory(data []byte) {
	if vt.rawHistoryMax <= 0 {
		vt.rawHistoryMax = RawHistoryLimit
	}
	vt.RawHistory = append(vt.RawHistory, StripOSCDefaultColors(data)...)
	if len(vt.RawHistory) > vt.rawHistoryMax {
		trim := len(vt.RawHistory) - vt.rawHistoryMax
		vt.RawHistory = vt.RawHistory[trim:]
	}
}

// StripOSCDefaultColors removes OSC 10/11 sequences (ESC ] 10 ; ... BEL/ST,
// ESC ] 11 ; ... BEL/ST) from data. Some agents write these to set the
// default foreground/background color in a form that otherwise leaks as
// literal text when the raw bytes are replayed outside of a terminal that
// would normally consume the escape sequence.
func StripOSCDefaultColors(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == 0x1B && i+1 < len(data) && data[i+1] == ']' && isOSC10or11(data[i:]) {
			if end := oscSequenceEnd(data[i:]); end > 0 {
				i += end
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}

// isOSC10or11 reports whether data begins with "ESC ] 10 ;" or "ESC ] 11 ;".
func isOSC10or11(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\033]10;")) || bytes.HasPrefix(data, []byte("\033]11;"))
}

// oscSequenceEnd returns the length of the OSC sequence at the start of
// data (terminated by BEL or ST), or 0 if no terminator is found.
func oscSequenceEnd(data []byte) int {
	for i := 2; i < len(data); i++ {
		if data[i] == 0x07 { // BEL
			return i + 1
		}
		if data[i] == 0x1B && i+1 < len(data) && data[i+1] == '\\' { // ST
			return i + 2
		}
	}
	return 0
}

// Lines returns up to n lines of the visible screen, read back as plain
// text. When the alternate screen buffer is active (the child is a
// full-screen TUI), midterm's Content already reflects that buffer, so
// this reads the same way regardless of which buffer is live. Otherwise
// it returns the last n wrapped lines of the primary buffer, anchored on
// the cursor row (midterm grows Content past ChildRows as output scrolls).
func (vt *VT) Lines(n int) []string {
	vt.Mu.Lock()
	defer vt.Mu.Unlock()
	return vt.linesLocked(n)
}

func (vt *VT) linesLocked(n int) []string {
	if vt.Vt == nil {
		return nil
	}
	if n <= 0 {
		n = DefaultVisibleLines
	}
	end := vt.Vt.Cursor.Y + 1
	if end > len(vt.Vt.Content) {
		end = len(vt.Vt.Content)
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, vt.Vt.Content[i].Display())
	}
	return lines
}

// Replay returns the raw bytes captured in the bounded scrollback ring,
// suitable for writing straight to an operator's terminal on re-attach.
func (vt *VT) Replay() []byte {
	vt.Mu.Lock()
	defer vt.Mu.Unlock()
	out := make([]byte, len(vt.RawHistory))
	copy(out, vt.RawHistory)
	return out
}

// RespondOSCColors responds to OSC 10/11 color queries from the child.
func (vt *VT) RespondOSCColors(data []byte) {
	fg := vt.OscFg
	bg := vt.OscBg
	if fg == "" || bg == "" {
		fallbackFg, fallbackBg := FallbackOSCPalette(os.Getenv("COLORFGBG"))
		if fg == "" {
			fg = fallbackFg
		}
		if bg == "" {
			bg = fallbackBg
		}
	}
	if bytes.Contains(data, []byte("\033]10;?")) {
		fmt.Fprintf(vt.Ptm, "\033]10;%s\033\\", fg)
	}
	if bytes.Contains(data, []byte("\033]11;?")) {
		fmt.Fprintf(vt.Ptm, "\033]11;%s\033\\", bg)
	}
}

// Resize updates dimensions and resizes the virtual terminal and PTY.
func (vt *VT) Resize(totalRows, cols, childRows int) {
	vt.Mu.Lock()
	defer vt.Mu.Unlock()
	vt.Rows = totalRows
	vt.Cols = cols
	vt.ChildRows = childRows
	vt.Vt.Resize(childRows, cols)
	if vt.Ptm != nil {
		pty.Setsize(vt.Ptm, &pty.Winsize{
			Rows: uint16(childRows),
			Cols: uint16(cols),
		})
	}
}

// ErrPTYWriteTimeout is returned by WritePTY when the write does not complete
// within the given deadline. The child process is likely hung (not reading stdin).
var ErrPTYWriteTimeout = fmt.Errorf("pty write timed out")

// WritePTY writes to the child PTY with a timeout. If the child is not reading
// its stdin, the kernel PTY buffer fills up and Write blocks indefinitely.
// This method runs the write in a goroutine so the caller can give up after a
// deadline and release the VT mutex.
func (vt *VT) WritePTY(p []byte, timeout time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := vt.Ptm.Write(p)
		ch <- result{n, err}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-timer.C:
		return 0, ErrPTYWriteTimeout
	}
}
