package adapters

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Marketen/slotwatch/internal/application/domain"
	"github.com/Marketen/slotwatch/internal/logger"
)

var ErrCommandFailed = errors.New("command failed")

// ParseSchedule reads `<slot> <identity> ...` lines. Lines with fewer than two
// fields or a non-numeric slot are skipped.
func ParseSchedule(r io.Reader) (domain.Schedule, error) {
	schedule := make(domain.Schedule)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	skipped := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		slot, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			skipped++
			continue
		}
		schedule[domain.Slot(slot)] = domain.Identity(fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	if skipped > 0 {
		logger.Debug("Skipped %d schedule lines with a non-numeric slot", skipped)
	}
	return schedule, nil
}

// runCommand executes argv and returns its stdout.
func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrCommandFailed)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrCommandFailed, argv[0], err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandFailed, argv[0], err)
	}
	return stdout.Bytes(), nil
}

// CommandScheduleSource runs a command such as `solana leader-schedule` and
// parses its stdout.
type CommandScheduleSource struct {
	Argv []string
}

func NewCommandScheduleSource(argv []string) *CommandScheduleSource {
	return &CommandScheduleSource{Argv: argv}
}

func (c *CommandScheduleSource) LoadSchedule(ctx context.Context) (domain.Schedule, error) {
	out, err := runCommand(ctx, c.Argv)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(bytes.NewReader(out))
}

// FileScheduleSource parses a previously saved schedule.
type FileScheduleSource struct {
	Path string
}

func NewFileScheduleSource(path string) *FileScheduleSource {
	return &FileScheduleSource{Path: path}
}

func (f *FileScheduleSource) LoadSchedule(_ context.Context) (domain.Schedule, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseSchedule(file)
}
