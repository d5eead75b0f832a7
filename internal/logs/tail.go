package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// scanBufferLimit bounds the size of a single log line.
const scanBufferLimit = 1024 * 1024

// pollInterval is how often follow mode re-checks the file for new lines.
const pollInterval = 250 * time.Millisecond

// Request describes one tail read. A negative Cursor asks for the last
// Limit lines of the file; a non-negative Cursor reads forward from that
// byte offset. When Follow is set and no lines are available, the read
// blocks up to Wait for new output.
type Request struct {
	Cursor int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// Result carries the lines read and the cursor to resume from.
type Result struct {
	Lines  []string
	Cursor int64
}

// Tail reads log lines per the request. A missing file is not an error;
// it yields an empty result with a zero cursor so pollers can keep waiting
// for the daemon to create it.
func Tail(ctx context.Context, path string, req Request) (Result, error) {
	if req.Wait < 0 {
		req.Wait = 0
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Cursor: req.Cursor}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{Cursor: req.Cursor}, fmt.Errorf("log path %q is a directory", path)
	}

	var result Result
	if req.Cursor < 0 {
		result, err = tailLastLines(path, req.Limit)
	} else {
		cursor := req.Cursor
		if cursor > info.Size() {
			cursor = info.Size()
		}
		result, err = readForward(path, cursor)
	}
	if err != nil {
		return result, err
	}

	if req.Follow && req.Wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Cursor, req.Wait)
	}
	return result, nil
}

// tailLastLines returns up to limit trailing lines and a cursor at end of
// file. A limit of zero skips reading and just positions the cursor.
func tailLastLines(path string, limit int) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Result{}, fmt.Errorf("seek log file: %w", err)
		}
		return Result{Cursor: end}, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferLimit)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return Result{}, fmt.Errorf("seek log file: %w", err)
	}
	return Result{Lines: lines, Cursor: end}, nil
}

// readForward reads every complete line from cursor to end of file.
func readForward(path string, cursor int64) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Cursor: cursor}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(cursor, io.SeekStart); err != nil {
		return Result{Cursor: cursor}, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferLimit)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Result{Cursor: cursor}, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Result{Cursor: cursor}, fmt.Errorf("determine log cursor: %w", err)
	}
	return Result{Lines: lines, Cursor: next}, nil
}

// awaitLines polls for new lines until some appear, the wait expires, or
// the context is canceled.
func awaitLines(ctx context.Context, path string, cursor int64, wait time.Duration) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := readForward(path, cursor)
		if err != nil {
			return result, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		cursor = result.Cursor

		select {
		case <-ctx.Done():
			result.Cursor = cursor
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
