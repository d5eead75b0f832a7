package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Runner abstracts external command execution for testability. Every line of
// combined stdout and stderr is forwarded to onLine in arrival order.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Locator is an optional Runner capability: resolving a binary on PATH. The
// production runner implements it so operation starts can reject a missing
// tool up front instead of surfacing a spawn failure from a run already
// marked running.
type Locator interface {
	LookPath(binary string) (string, error)
}

// NewCommandRunner returns the Runner used outside tests.
func NewCommandRunner() Runner {
	return commandRunner{}
}

type commandRunner struct{}

func (commandRunner) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

func (commandRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forwardLine(onLine, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

func forwardLine(onLine func(string), line string) {
	if onLine != nil {
		onLine(line)
		return
	}
	fmt.Fprintln(os.Stderr, line)
}

// ExitCode extracts the subprocess exit code from a Runner error. The second
// return is false when err carries no exit status (spawn failures, context
// cancellation).
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// CommandLine renders a binary invocation for logs and step records.
func CommandLine(binary string, args []string) string {
	if len(args) == 0 {
		return binary
	}
	return binary + " " + strings.Join(args, " ")
}
