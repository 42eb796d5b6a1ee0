package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, "Solving", true)
	spinner.interval = 20 * time.Millisecond

	spinner.Start()
	time.Sleep(80 * time.Millisecond)
	spinner.Stop()

	if !strings.Contains(buf.String(), "Solving") {
		t.Errorf("Expected spinner to show its message, got: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "\r\033[K") {
		t.Error("Expected spinner to clear the line on stop")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, "Never started", true)

	// Must not block or write anything.
	spinner.Stop()

	if buf.Len() != 0 {
		t.Errorf("Stop before Start should write nothing, got: %q", buf.String())
	}
}

func TestSpinnerMultipleStops(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, "Solving", true)
	spinner.interval = 20 * time.Millisecond

	spinner.Start()
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()
	spinner.Stop()
	spinner.Stop()
}

func TestWithSpinnerSuccessLeavesNoOutcomeLine(t *testing.T) {
	var buf bytes.Buffer
	called := false

	err := WithSpinner(&buf, "Solving constraints", true, func() error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("WithSpinner() error = %v, want nil", err)
	}
	if !called {
		t.Error("WithSpinner() did not invoke the function")
	}

	// The spinner clears itself; reporting the outcome is the
	// caller's job, so no checkmark or message may remain.
	output := buf.String()
	if strings.Contains(output, "✓") {
		t.Errorf("WithSpinner() printed a success line: %q", output)
	}
	if !strings.HasSuffix(output, "\r\033[K") {
		t.Errorf("WithSpinner() did not end by clearing its line: %q", output)
	}
}

func TestWithSpinnerError(t *testing.T) {
	var buf bytes.Buffer
	wantErr := errors.New("solve diverged")

	err := WithSpinner(&buf, "Solving constraints", true, func() error {
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("WithSpinner() error = %v, want %v", err, wantErr)
	}
	if !strings.HasSuffix(buf.String(), "\r\033[K") {
		t.Errorf("WithSpinner() did not clear its line on error: %q", buf.String())
	}
}
