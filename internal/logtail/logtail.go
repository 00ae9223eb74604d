package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultMaxLines bounds Read when Options.MaxLines is not set.
const DefaultMaxLines = 500

// Line is one log record as shown by the log view.
type Line struct {
	Text     string
	Level    slog.Level
	HasLevel bool
}

// Options select which lines Read returns.
type Options struct {
	MaxLines int
	// MinLevel drops records below this level. Lines without a level are
	// kept only when MinLevel is info or lower.
	MinLevel slog.Level
}

// Read returns the last matching lines of the file at path, oldest first.
// A missing file yields no lines and no error.
func Read(path string, opts Options) ([]Line, error) {
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]Line, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		line := parseLine(scanner.Text())
		if !keep(line, opts.MinLevel) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]Line, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

var (
	textLevel = regexp.MustCompile(`(?:^|\s)level=([A-Za-z]+)([+-]\d+)?`)
	jsonLevel = regexp.MustCompile(`"level"\s*:\s*"([A-Za-z]+)([+-]\d+)?"`)
)

// ParseLevel extracts the slog level from a text or JSON handler line.
func ParseLevel(text string) (slog.Level, bool) {
	m := jsonLevel.FindStringSubmatch(text)
	if m == nil {
		m = textLevel.FindStringSubmatch(text)
	}
	if m == nil {
		return slog.LevelInfo, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(m[1]) + m[2])); err != nil {
		return slog.LevelInfo, false
	}
	return lvl, true
}

func parseLine(text string) Line {
	lvl, ok := ParseLevel(text)
	return Line{Text: text, Level: lvl, HasLevel: ok}
}

func keep(l Line, min slog.Level) bool {
	if !l.HasLevel {
		return min <= slog.LevelInfo
	}
	return l.Level >= min
}
