package chain

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the log format version written by this package.
const FormatVersion = "1.0.0"

// formatConstraint is the range of format versions this package reads.
const formatConstraint = "^1.0.0"

// Reserved header keys.
const (
	HeaderFormat = "dit"
	HeaderMode   = "mode"
)

// HeaderLine is one "#key value" line from the top of a log.
type HeaderLine struct {
	Key   string
	Value string
}

func (h HeaderLine) String() string {
	if h.Value == "" {
		return "#" + h.Key
	}
	return "#" + h.Key + " " + h.Value
}

// IsHeaderLine reports whether a raw log line is a header line.
func IsHeaderLine(line string) bool {
	return strings.HasPrefix(line, "#")
}

// ParseHeaderLine splits "#key value". The value is everything after the
// first run of whitespace, trimmed.
func ParseHeaderLine(line string) (HeaderLine, error) {
	if !IsHeaderLine(line) {
		return HeaderLine{}, fmt.Errorf("not a header line: %q", line)
	}
	body := strings.TrimSpace(line[1:])
	if body == "" {
		return HeaderLine{}, fmt.Errorf("empty header line")
	}
	key, value, _ := strings.Cut(body, " ")
	return HeaderLine{Key: key, Value: strings.TrimSpace(value)}, nil
}

// CheckFormatVersion accepts any version in the supported range.
func CheckFormatVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid format version %q: %w", v, err)
	}
	c, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return fmt.Errorf("invalid format constraint: %w", err)
	}
	if !c.Check(version) {
		return fmt.Errorf("unsupported format version %s (want %s)", version, formatConstraint)
	}
	return nil
}

// ApplyHeader folds one header line into state. The format and mode lines
// are handled here; everything else goes to the domain.
func ApplyHeader[S State[S]](state S, line HeaderLine) (S, error) {
	switch line.Key {
	case HeaderFormat:
		if err := CheckFormatVersion(line.Value); err != nil {
			return state, err
		}
		return state, nil
	case HeaderMode:
		if got := Mode(line.Value); got != state.Mode() {
			return state, &WrongModeError{Mode: got, Expected: []Mode{state.Mode()}}
		}
		return state, nil
	default:
		return state.ReadHeaderLine(line)
	}
}

// WriteHeader writes the format and mode lines for S, followed by extra
// domain lines.
func WriteHeader[S State[S]](w io.Writer, extra ...HeaderLine) error {
	bw := bufio.NewWriter(w)
	lines := append([]HeaderLine{
		{Key: HeaderFormat, Value: FormatVersion},
		{Key: HeaderMode, Value: string(ModeOf[S]())},
	}, extra...)
	for _, l := range lines {
		if _, err := bw.WriteString(l.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// HeaderWriter is implemented by states that need domain header lines to
// replay to themselves from the default state.
type HeaderWriter interface {
	HeaderLines() []HeaderLine
}

// HeaderLinesOf returns the domain header lines that reproduce state, or nil
// when S does not implement HeaderWriter.
func HeaderLinesOf[S any](state S) []HeaderLine {
	if hw, ok := any(state).(HeaderWriter); ok {
		return hw.HeaderLines()
	}
	return nil
}
