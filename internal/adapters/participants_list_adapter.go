package adapters

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

// parseIdentityList reads one identity per line. Blank lines and lines
// starting with # are ignored, as is anything after the first field.
func parseIdentityList(r io.Reader) (domain.ParticipantSet, error) {
	set := domain.NewParticipantSet()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[domain.Identity(strings.Fields(line)[0])] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identities: %w", err)
	}
	return set, nil
}

// CommandParticipantSource runs a tool that prints connected leader identities,
// e.g. `jito-searcher-cli ... connected-leaders-info`.
type CommandParticipantSource struct {
	Argv []string
}

func NewCommandParticipantSource(argv []string) *CommandParticipantSource {
	return &CommandParticipantSource{Argv: argv}
}

func (c *CommandParticipantSource) LoadParticipants(ctx context.Context) (domain.ParticipantSet, error) {
	out, err := runCommand(ctx, c.Argv)
	if err != nil {
		return nil, err
	}
	return parseIdentityList(bytes.NewReader(out))
}

// FileParticipantSource reads identities from a local file.
type FileParticipantSource struct {
	Path string
}

func NewFileParticipantSource(path string) *FileParticipantSource {
	return &FileParticipantSource{Path: path}
}

func (f *FileParticipantSource) LoadParticipants(_ context.Context) (domain.ParticipantSet, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseIdentityList(file)
}
