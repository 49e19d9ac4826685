package runlet

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRun_Success(t *testing.T) {
	err := Run(context.Background(), New("true"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	err := Run(context.Background(), New("false"))
	if err == nil {
		t.Fatal("expected error for failing child")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	if cmdErr.Status().Success() {
		t.Error("Status().Success() = true, want false")
	}
	if cmdErr.Status().Code() != 1 {
		t.Errorf("Status().Code() = %d, want 1", cmdErr.Status().Code())
	}
	if got := cmdErr.StderrBytes(); len(got) != 0 {
		t.Errorf("StderrBytes() = %q, want empty", got)
	}
}

func TestRun_StderrOnCleanExit(t *testing.T) {
	err := Run(context.Background(), New("sh", "-c", "echo warning >&2"))
	if err == nil {
		t.Fatal("expected error for stderr output on clean exit")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	if !cmdErr.Status().Success() {
		t.Errorf("Status() = %v, want success", cmdErr.Status())
	}
	if got := cmdErr.StderrText(); !strings.Contains(got, "warning") {
		t.Errorf("StderrText() = %q, want to contain 'warning'", got)
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	err := Run(context.Background(), New("nonexistent-binary-xyz-123"))
	if err == nil {
		t.Fatal("expected error for missing binary")
	}

	// A spawn failure is a communication failure, never a child failure.
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		t.Fatalf("error = *CommandError (%v), want plain error", cmdErr)
	}
	if !strings.Contains(err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", err)
	}
}

func TestRun_StderrCaptureDisabled(t *testing.T) {
	// With capture off, stderr never influences the outcome.
	cmd := New("sh", "-c", "echo noise >&2").DiscardStderr()
	if err := Run(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exit status still does.
	cmd = New("sh", "-c", "echo noise >&2; exit 3").DiscardStderr()
	err := Run(context.Background(), cmd)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	if cmdErr.Status().Code() != 3 {
		t.Errorf("Status().Code() = %d, want 3", cmdErr.Status().Code())
	}
	if cmdErr.StderrBytes() != nil {
		t.Errorf("StderrBytes() = %v, want nil when capture disabled", cmdErr.StderrBytes())
	}
}

func TestRun_StderrToHandle(t *testing.T) {
	var sink bytes.Buffer
	cmd := New("sh", "-c", "echo routed >&2").StderrTo(&sink)
	if err := Run(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sink.String(), "routed") {
		t.Errorf("handle received %q, want to contain 'routed'", sink.String())
	}
}

func TestRun_StdinFrom(t *testing.T) {
	out, err := Output(context.Background(), New("cat").StdinFrom(strings.NewReader("piped in")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "piped in" {
		t.Errorf("stdout = %q, want %q", out, "piped in")
	}
}

func TestRun_ConsumedOnce(t *testing.T) {
	cmd := New("true")
	if err := Run(context.Background(), cmd); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Run(context.Background(), cmd); err == nil {
		t.Fatal("expected error on second run of the same command")
	}
}

func TestRun_EmptyPath(t *testing.T) {
	if err := Run(context.Background(), New("")); err == nil {
		t.Fatal("expected error for empty program path")
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, New("sleep", "10"))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		t.Fatalf("error = *CommandError (%v), want communication failure", cmdErr)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want to wrap context.Canceled", err)
	}
}

func TestOutput_CapturesStdout(t *testing.T) {
	out, err := Output(context.Background(), New("echo", "hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hi\n" {
		t.Errorf("stdout = %q, want %q", out, "hi\n")
	}
}

func TestOutput_PartialStdoutOnFailure(t *testing.T) {
	// A filter that printed some correct output before failing: the
	// partial bytes stay inspectable on the error.
	_, err := Output(context.Background(), New("sh", "-c", "echo partial; exit 1"))

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	stdout, captured := cmdErr.StdoutBytes()
	if !captured {
		t.Fatal("StdoutBytes() captured = false, want true")
	}
	if string(stdout) != "partial\n" {
		t.Errorf("stdout = %q, want %q", stdout, "partial\n")
	}
}

func TestOutput_StdoutNotAttachedByRun(t *testing.T) {
	err := Run(context.Background(), New("sh", "-c", "echo out; exit 1").DiscardStdout())

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	if _, captured := cmdErr.StdoutBytes(); captured {
		t.Error("StdoutBytes() captured = true, want false without Output")
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	cmd := New("sh", "-c", "dd if=/dev/zero bs=200 count=1 2>/dev/null; exit 1").MaxOutput(100)
	_, err := Output(context.Background(), cmd)

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %T, want *CommandError", err)
	}
	if !cmdErr.Truncated() {
		t.Error("Truncated() = false, want true")
	}
	stdout, _ := cmdErr.StdoutBytes()
	if len(stdout) > 100 {
		t.Errorf("len(stdout) = %d, want <= 100", len(stdout))
	}
}

func TestRun_Dir(t *testing.T) {
	dir := t.TempDir()
	out, err := Output(context.Background(), New("pwd").Dir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), dir) {
		t.Errorf("pwd = %q, want to contain %q", out, dir)
	}
}

func TestRun_Env(t *testing.T) {
	cmd := New("sh", "-c", `printf '%s' "$RUNLET_TEST_VAR"`).Env([]string{"RUNLET_TEST_VAR=hello"})
	out, err := Output(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("stdout = %q, want %q", out, "hello")
	}
}
