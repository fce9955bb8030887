package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrCheckerUnavailable is returned when the checker process could not produce a verdict.
var ErrCheckerUnavailable = errors.New("static checker unavailable")

// candidateName replaces the temp file path in diagnostics shown to the model.
const candidateName = "candidate.py"

// Flake8 runs flake8 against candidate source written to a scoped temp file.
type Flake8 struct {
	Command string
	Timeout time.Duration
	TempDir string
}

// NewFlake8 returns a checker using the given binary, "flake8" when empty.
func NewFlake8(command string, timeout time.Duration) *Flake8 {
	if command == "" {
		command = "flake8"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flake8{Command: command, Timeout: timeout}
}

// Available reports whether the checker binary is on PATH.
func (f *Flake8) Available() bool {
	_, err := exec.LookPath(f.Command)
	return err == nil
}

// CheckDiagnostics returns the findings of the given categories, or "" when there are none.
// The temp file is removed on every path, including checker failure.
func (f *Flake8) CheckDiagnostics(ctx context.Context, source string, filter []Category) (string, error) {
	codes := Selectors(filter)
	if len(codes) == 0 {
		return "", nil
	}

	tmp, err := os.CreateTemp(f.TempDir, "debug-candidate-*.py")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	out, err := f.run(ctx, tmpPath, codes)
	if err != nil {
		return "", err
	}
	out = strings.ReplaceAll(out, tmpPath, candidateName)
	out = strings.ReplaceAll(out, filepath.Base(tmpPath), candidateName)
	return strings.TrimSpace(out), nil
}

func (f *Flake8) run(ctx context.Context, path string, codes []string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, f.Command, path, "--select="+strings.Join(codes, ","), "--show-source")
	cmd.Dir = filepath.Dir(path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: %s timed out after %s", ErrCheckerUnavailable, f.Command, f.Timeout)
	}
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return "", fmt.Errorf("%w: %v", ErrCheckerUnavailable, err)
	}
	// flake8 exits non-zero when it reports findings.
	combined := stdout.String() + stderr.String()
	if strings.TrimSpace(combined) == "" {
		return "", fmt.Errorf("%w: %s exited with status %d", ErrCheckerUnavailable, f.Command, exitErr.ExitCode())
	}
	if stdout.Len() == 0 {
		return "", fmt.Errorf("%w: %s", ErrCheckerUnavailable, strings.TrimSpace(stderr.String()))
	}
	return combined, nil
}
