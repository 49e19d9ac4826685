package runlet

import "io"

// DefaultMaxOutput caps each captured stream at 1 MiB unless overridden.
const DefaultMaxOutput = 1 << 20

// stdioMode is the disposition of one standard stream.
type stdioMode int

const (
	stdioInherit stdioMode = iota // share the parent's stream
	stdioDiscard                  // connect to the null device
	stdioCapture                  // buffer in memory (stdout/stderr only)
	stdioHandle                   // use a caller-provided reader/writer
)

// Command describes a single child-process execution: program path,
// arguments, and the disposition of each standard stream. A Command is
// built once, run exactly once by Run or Output, and never reused.
//
// Defaults: stdin and stdout are inherited from the caller; stderr is
// captured, so any diagnostic output from the child is treated as a
// failure unless the caller chooses a different stderr disposition.
type Command struct {
	path string
	args []string
	dir  string
	env  []string

	maxOutput int

	stdin  stdioMode
	stdout stdioMode
	stderr stdioMode

	stdinHandle  io.Reader
	stdoutHandle io.Writer
	stderrHandle io.Writer

	ran bool
}

// New creates a command for the given program and arguments. The
// program is resolved via PATH unless it contains a path separator.
func New(path string, args ...string) *Command {
	return &Command{
		path:      path,
		args:      args,
		maxOutput: DefaultMaxOutput,
		stdin:     stdioInherit,
		stdout:    stdioInherit,
		stderr:    stdioCapture,
	}
}

// Path returns the program path.
func (c *Command) Path() string { return c.path }

// Args returns the argument list, not including the program itself.
func (c *Command) Args() []string { return c.args }

// Dir sets the child's working directory. Empty means the caller's.
func (c *Command) Dir(dir string) *Command {
	c.dir = dir
	return c
}

// Env sets the child's environment in KEY=VALUE form. Nil inherits the
// caller's environment.
func (c *Command) Env(env []string) *Command {
	c.env = env
	return c
}

// MaxOutput caps each captured stream at n bytes; output beyond the
// cap is dropped and the resulting outcome is flagged as truncated.
// n <= 0 removes the cap.
func (c *Command) MaxOutput(n int) *Command {
	c.maxOutput = n
	return c
}

// StdinFrom feeds the child's stdin from r.
func (c *Command) StdinFrom(r io.Reader) *Command {
	c.stdin = stdioHandle
	c.stdinHandle = r
	return c
}

// DiscardStdin connects the child's stdin to the null device.
func (c *Command) DiscardStdin() *Command {
	c.stdin = stdioDiscard
	c.stdinHandle = nil
	return c
}

// InheritStdin shares the caller's stdin with the child (the default).
func (c *Command) InheritStdin() *Command {
	c.stdin = stdioInherit
	c.stdinHandle = nil
	return c
}

// CaptureStdout buffers the child's stdout in memory. The bytes are
// only surfaced by Output; plain Run discards the buffer.
func (c *Command) CaptureStdout() *Command {
	c.stdout = stdioCapture
	c.stdoutHandle = nil
	return c
}

// StdoutTo redirects the child's stdout to w.
func (c *Command) StdoutTo(w io.Writer) *Command {
	c.stdout = stdioHandle
	c.stdoutHandle = w
	return c
}

// DiscardStdout connects the child's stdout to the null device.
func (c *Command) DiscardStdout() *Command {
	c.stdout = stdioDiscard
	c.stdoutHandle = nil
	return c
}

// InheritStdout shares the caller's stdout with the child (the default).
func (c *Command) InheritStdout() *Command {
	c.stdout = stdioInherit
	c.stdoutHandle = nil
	return c
}

// CaptureStderr buffers the child's stderr in memory (the default).
// Any captured bytes cause the run to be classified as a child failure,
// even on a zero exit status.
func (c *Command) CaptureStderr() *Command {
	c.stderr = stdioCapture
	c.stderrHandle = nil
	return c
}

// StderrTo redirects the child's stderr to w. Stderr output no longer
// influences the outcome; only the exit status does.
func (c *Command) StderrTo(w io.Writer) *Command {
	c.stderr = stdioHandle
	c.stderrHandle = w
	return c
}

// DiscardStderr connects the child's stderr to the null device. Stderr
// output no longer influences the outcome.
func (c *Command) DiscardStderr() *Command {
	c.stderr = stdioDiscard
	c.stderrHandle = nil
	return c
}

// InheritStderr shares the caller's stderr with the child. Stderr
// output no longer influences the outcome.
func (c *Command) InheritStderr() *Command {
	c.stderr = stdioInherit
	c.stderrHandle = nil
	return c
}
